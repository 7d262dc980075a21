// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestScriptBuilderAddOp tests that pushing opcodes to a script via the
// ScriptBuilder API works as expected.
func TestScriptBuilderAddOp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		opcodes  []byte
		expected []byte
	}{
		{
			name:     "push OP_0",
			opcodes:  []byte{OP_0},
			expected: []byte{OP_0},
		},
		{
			name:     "push OP_1 OP_2",
			opcodes:  []byte{OP_1, OP_2},
			expected: []byte{OP_1, OP_2},
		},
		{
			name:     "push OP_HASH160 OP_EQUAL",
			opcodes:  []byte{OP_HASH160, OP_EQUAL},
			expected: []byte{OP_HASH160, OP_EQUAL},
		},
	}

	builder := NewScriptBuilder()
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			builder.Reset()
			for _, opcode := range test.opcodes {
				builder.AddOp(opcode)
			}
			result, err := builder.Script()
			require.NoError(t, err)
			require.Equal(t, test.expected, result)

			result, err = builder.Reset().AddOps(test.opcodes).Script()
			require.NoError(t, err)
			require.Equal(t, test.expected, result)
		})
	}
}

// TestScriptBuilderAddInt64 tests that pushing signed integers to a script via
// the ScriptBuilder API works as expected.
func TestScriptBuilderAddInt64(t *testing.T) {
	t.Parallel()

	tests := []struct {
		val      int64
		expected []byte
	}{
		{val: -1, expected: []byte{OP_1NEGATE}},
		{val: 0, expected: []byte{OP_0}},
		{val: 1, expected: []byte{OP_1}},
		{val: 16, expected: []byte{OP_16}},
		{val: 17, expected: []byte{OP_DATA_1, 0x11}},
		{val: 127, expected: []byte{OP_DATA_1, 0x7f}},
		{val: 128, expected: []byte{OP_DATA_2, 0x80, 0}},
		{val: 255, expected: []byte{OP_DATA_2, 0xff, 0}},
		{val: 256, expected: []byte{OP_DATA_2, 0, 0x01}},
		{val: 32767, expected: []byte{OP_DATA_2, 0xff, 0x7f}},
		{val: 32768, expected: []byte{OP_DATA_3, 0, 0x80, 0}},
		{val: -2, expected: []byte{OP_DATA_1, 0x82}},
		{val: -16, expected: []byte{OP_DATA_1, 0x90}},
		{val: -128, expected: []byte{OP_DATA_2, 0x80, 0x80}},
		{val: -32768, expected: []byte{OP_DATA_3, 0, 0x80, 0x80}},
		{val: 2147483647, expected: []byte{OP_DATA_4, 0xff, 0xff, 0xff, 0x7f}},
		{val: 2147483648, expected: []byte{OP_DATA_5, 0, 0, 0, 0x80, 0}},
		{val: -2147483648, expected: []byte{OP_DATA_5, 0, 0, 0, 0x80, 0x80}},
	}

	builder := NewScriptBuilder()
	for _, test := range tests {
		result, err := builder.Reset().AddInt64(test.val).Script()
		require.NoError(t, err, "val %d", test.val)
		require.Equal(t, test.expected, result, "val %d", test.val)
	}
}

// TestScriptBuilderAddData tests that pushing data to a script via the
// ScriptBuilder API works as expected and conforms to BIP0062.
func TestScriptBuilderAddData(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		data     []byte
		expected []byte
		useFull  bool
	}{
		{
			name:     "push empty",
			data:     nil,
			expected: []byte{OP_0},
		},
		{
			name:     "push single zero byte",
			data:     []byte{0x00},
			expected: []byte{OP_DATA_1, 0x00},
		},
		{
			name:     "push 1 byte 0x01",
			data:     []byte{0x01},
			expected: []byte{OP_1},
		},
		{
			name:     "push 1 byte 0x10",
			data:     []byte{0x10},
			expected: []byte{OP_16},
		},
		{
			name:     "push 1 byte 0x11",
			data:     []byte{0x11},
			expected: []byte{OP_DATA_1, 0x11},
		},
		{
			name:     "push 1 byte 0x81",
			data:     []byte{0x81},
			expected: []byte{OP_1NEGATE},
		},
		{
			name:     "push data len 75",
			data:     bytes.Repeat([]byte{0x49}, 75),
			expected: append([]byte{OP_DATA_75}, bytes.Repeat([]byte{0x49}, 75)...),
		},
		{
			name:     "push data len 76",
			data:     bytes.Repeat([]byte{0x49}, 76),
			expected: append([]byte{OP_PUSHDATA1, 76}, bytes.Repeat([]byte{0x49}, 76)...),
		},
		{
			name:     "push data len 255",
			data:     bytes.Repeat([]byte{0x49}, 255),
			expected: append([]byte{OP_PUSHDATA1, 255}, bytes.Repeat([]byte{0x49}, 255)...),
		},
		{
			name:     "push data len 256",
			data:     bytes.Repeat([]byte{0x49}, 256),
			expected: append([]byte{OP_PUSHDATA2, 0, 1}, bytes.Repeat([]byte{0x49}, 256)...),
		},
		{
			name:     "push data len 520",
			data:     bytes.Repeat([]byte{0x49}, 520),
			expected: append([]byte{OP_PUSHDATA2, 0x08, 0x02}, bytes.Repeat([]byte{0x49}, 520)...),
		},

		// BIP0062: Pushing elements larger than the max script element
		// size is not canonical.
		{
			name:     "push data len 521",
			data:     bytes.Repeat([]byte{0x49}, 521),
			expected: []byte{},
		},
		{
			name:     "push data len 65536 full",
			data:     bytes.Repeat([]byte{0x49}, 65536),
			expected: append([]byte{OP_PUSHDATA4, 0, 0, 1, 0}, bytes.Repeat([]byte{0x49}, 65536)...),
			useFull:  true,
		},
	}

	builder := NewScriptBuilder()
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			builder.Reset()
			if test.useFull {
				builder.AddFullData(test.data)
			} else {
				builder.AddData(test.data)
			}
			result, _ := builder.Script()
			require.Equal(t, test.expected, result)
		})
	}
}

// TestExceedMaxScriptSize ensures that all of the functions that can be used
// to add data to a script don't allow the script to exceed the max allowed
// size.
func TestExceedMaxScriptSize(t *testing.T) {
	t.Parallel()

	// Start off by constructing a max size script.
	builder := NewScriptBuilder()
	builder.Reset().AddFullData(make([]byte, MaxScriptSize-3))
	origScript, err := builder.Script()
	require.NoError(t, err)
	require.Len(t, origScript, MaxScriptSize)

	adders := map[string]func(*ScriptBuilder){
		"AddData":  func(b *ScriptBuilder) { b.AddData([]byte{0x00}) },
		"AddOp":    func(b *ScriptBuilder) { b.AddOp(OP_0) },
		"AddInt64": func(b *ScriptBuilder) { b.AddInt64(0) },
	}
	for name, add := range adders {
		builder.Reset().AddFullData(make([]byte, MaxScriptSize-3))
		add(builder)
		script, err := builder.Script()
		require.IsType(t, ErrScriptNotCanonical(""), err, name)
		require.Equal(t, origScript, script, name)
	}
}

// TestErroredScript ensures that all of the functions that can be used to add
// data to a script don't modify the script once an error has happened.
func TestErroredScript(t *testing.T) {
	t.Parallel()

	builder := NewScriptBuilder()
	builder.Reset().AddFullData(make([]byte, MaxScriptSize-8)).
		AddData([]byte{0x01, 0x02, 0x03})
	origScript, err := builder.Script()
	require.NoError(t, err)
	require.Len(t, origScript, MaxScriptSize-1)

	// Push past the limit once, then ensure nothing further is added even
	// though it would fit.
	builder.AddData([]byte{0x01, 0x02, 0x03})
	_, err = builder.Script()
	require.Error(t, err)

	builder.AddFullData([]byte{0x11})
	builder.AddData([]byte{0x11})
	builder.AddOp(OP_0)
	builder.AddOps([]byte{OP_0})
	builder.AddInt64(0)
	script, err := builder.Script()
	require.Error(t, err)
	require.Equal(t, origScript, script)
}

// TestScriptBuilderParses ensures that every script produced by the builder
// tokenizes cleanly and satisfies the minimal push rules.
func TestScriptBuilderParses(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		builder := NewScriptBuilder()
		pushes := rapid.SliceOfN(
			rapid.SliceOfN(rapid.Byte(), 0, MaxScriptElementSize), 1, 8,
		).Draw(t, "pushes")
		for _, push := range pushes {
			builder.AddData(push)
		}
		script, err := builder.Script()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var i int
		tokenizer := makeScriptTokenizer(script)
		for tokenizer.Next() {
			op := tokenizer.Opcode()
			data := tokenizer.Data()
			if op <= OP_PUSHDATA4 {
				err := checkMinimalDataPush(&opcodeArray[op], data)
				if err != nil {
					t.Fatalf("push %d not minimal: %v", i, err)
				}
			}
			i++
		}
		if err := tokenizer.Err(); err != nil {
			t.Fatalf("script failed to parse: %v", err)
		}
		if i != len(pushes) {
			t.Fatalf("got %d pushes, want %d", i, len(pushes))
		}
	})
}
