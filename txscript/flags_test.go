// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestParseScriptFlags ensures rule names are mapped to the expected flags.
func TestParseScriptFlags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in    string
		flags ScriptFlags
		valid bool
	}{
		{"", 0, true},
		{"NONE", 0, true},
		{"P2SH", ScriptBip16, true},
		{"p2sh, witness", ScriptBip16 | ScriptVerifyWitness, true},
		{"P2SH,WITNESS,TAPROOT", ScriptBip16 | ScriptVerifyWitness |
			ScriptVerifyTaproot, true},
		{"NULLDUMMY,NULLFAIL", ScriptStrictMultiSig | ScriptVerifyNullFail,
			true},
		{"CONSENSUS", ConsensusVerifyFlags, true},
		{"STANDARD,SIGPUSHONLY", StandardVerifyFlags |
			ScriptVerifySigPushOnly, true},
		{"P2SH,BOGUS", 0, false},
	}

	for _, test := range tests {
		flags, err := ParseScriptFlags(test.in)
		if !test.valid {
			require.Error(t, err, test.in)
			continue
		}
		require.NoError(t, err, test.in)
		require.Equal(t, test.flags, flags, test.in)
	}
}

// TestScriptFlagsString ensures flags are rendered in bit order.
func TestScriptFlagsString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "NONE", ScriptFlags(0).String())
	require.Equal(t, "P2SH,WITNESS",
		(ScriptVerifyWitness | ScriptBip16).String())
	require.Equal(t, "P2SH,NULLDUMMY,CHECKLOCKTIMEVERIFY,"+
		"CHECKSEQUENCEVERIFY,DERSIG,WITNESS,TAPROOT",
		ConsensusVerifyFlags.String())
}

// TestScriptFlagsRoundTrip ensures any combination of flags survives being
// rendered and parsed again.
func TestScriptFlagsRoundTrip(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		mask := ScriptFlags(1<<numScriptFlags - 1)
		flags := ScriptFlags(rapid.Uint32().Draw(t, "flags")) & mask

		parsed, err := ParseScriptFlags(flags.String())
		if err != nil {
			t.Fatalf("unable to parse %q: %v", flags.String(), err)
		}
		if parsed != flags {
			t.Fatalf("round trip mismatch: got %v, want %v", parsed,
				flags)
		}
	})
}
