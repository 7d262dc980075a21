// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package log

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/btcsuite/btclog"
	"github.com/stretchr/testify/require"
)

func TestParseAndSetDebugLevels(t *testing.T) {
	tests := []struct {
		name       string
		debugLevel string
		wantErr    bool
		want       map[string]btclog.Level
	}{
		{
			name:       "all subsystems",
			debugLevel: "debug",
			want: map[string]btclog.Level{
				"CHAN": btclog.LevelDebug,
				"PVDB": btclog.LevelDebug,
				"SCRP": btclog.LevelDebug,
				"VRFY": btclog.LevelDebug,
			},
		},
		{
			name:       "mixed level and pairs",
			debugLevel: "info,SCRP=trace,VRFY=warn",
			wantErr:    true,
		},
		{
			name:       "per subsystem",
			debugLevel: "SCRP=trace,VRFY=warn",
			want: map[string]btclog.Level{
				"SCRP": btclog.LevelTrace,
				"VRFY": btclog.LevelWarn,
			},
		},
		{
			name:       "invalid level",
			debugLevel: "verbose",
			wantErr:    true,
		},
		{
			name:       "invalid subsystem",
			debugLevel: "PEER=info",
			wantErr:    true,
		},
		{
			name:       "invalid pair level",
			debugLevel: "SCRP=loud",
			wantErr:    true,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			SetLogLevels("info")

			err := ParseAndSetDebugLevels(test.debugLevel)
			if test.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)

			for subsystem, level := range test.want {
				require.Equal(t, level,
					subsystemLoggers[subsystem].Level(),
					subsystem)
			}
		})
	}
}

func TestSupportedSubsystems(t *testing.T) {
	require.Equal(t, []string{"CHAN", "PVDB", "SCRP", "VRFY"},
		SupportedSubsystems())
}

func TestInitLogRotator(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "verifier.log")
	require.NoError(t, InitLogRotator(logFile))
	defer func() {
		LogRotator.Close()
		LogRotator = nil
	}()

	_, err := os.Stat(filepath.Dir(logFile))
	require.NoError(t, err)
}

func TestPickNoun(t *testing.T) {
	require.Equal(t, "input", PickNoun(1, "input", "inputs"))
	require.Equal(t, "inputs", PickNoun(0, "input", "inputs"))
	require.Equal(t, "inputs", PickNoun(2, "input", "inputs"))
}
