// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package verifier

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	flags "github.com/jessevdk/go-flags"

	"github.com/btcsuite/btcscript/database/engine"
	_ "github.com/btcsuite/btcscript/database/engine/leveldb"
	_ "github.com/btcsuite/btcscript/database/engine/pebbledb"
	blog "github.com/btcsuite/btcscript/internal/log"
	"github.com/btcsuite/btcscript/txscript"
)

const (
	defaultConfigFilename  = "verifier.conf"
	defaultDataDirname     = "data"
	defaultLogDirname      = "logs"
	defaultLogFilename     = "verifier.log"
	defaultLogLevel        = "info"
	defaultDbType          = "leveldb"
	defaultSigCacheMaxSize = 100000
	defaultHashCacheSize   = 1000
	defaultScriptFlags     = "STANDARD"
)

var (
	defaultHomeDir    = btcutil.AppDataDir("btcscript", false)
	defaultConfigFile = filepath.Join(defaultHomeDir, defaultConfigFilename)
	defaultDataDir    = filepath.Join(defaultHomeDir, defaultDataDirname)
	defaultLogDir     = filepath.Join(defaultHomeDir, defaultLogDirname)
)

// Config defines the configuration options for the verifier.
//
// See LoadConfig for details on the configuration load process.
type Config struct {
	ConfigFile       string `short:"C" long:"configfile" description:"Path to configuration file"`
	DataDir          string `short:"b" long:"datadir" description:"Directory to store the prevout database"`
	LogDir           string `long:"logdir" description:"Directory to log output"`
	NoFileLogging    bool   `long:"nofilelogging" description:"Disable file logging"`
	DebugLevel       string `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems"`
	DbType           string `long:"dbtype" description:"Database backend to use for the prevout store {leveldb, pebble}"`
	SigCacheMaxSize  uint   `long:"sigcachemaxsize" description:"The maximum number of entries in the signature verification cache"`
	HashCacheMaxSize uint   `long:"hashcachemaxsize" description:"The maximum number of transactions in the sighash midstate cache"`
	ScriptFlags      string `long:"scriptflags" description:"Comma separated script verification rules, e.g. P2SH,WITNESS,TAPROOT or STANDARD"`
	NoSequenceLocks  bool   `long:"nosequencelocks" description:"Do not enforce BIP0068 relative lock times"`

	scriptFlags txscript.ScriptFlags
}

// VerifyFlags returns the parsed script verification flags.
func (cfg *Config) VerifyFlags() txscript.ScriptFlags {
	return cfg.scriptFlags
}

// cleanAndExpandPath expands environement variables and leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		homeDir := filepath.Dir(defaultHomeDir)
		path = strings.Replace(path, "~", homeDir, 1)
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows-style %VARIABLE%,
	// but they variables can still be expanded via POSIX-style $VARIABLE.
	return filepath.Clean(os.ExpandEnv(path))
}

// validDbType returns whether or not dbType is a supported database type.
func validDbType(dbType string) bool {
	for _, knownType := range engine.SupportedDrivers() {
		if dbType == knownType {
			return true
		}
	}

	return false
}

// LoadConfig initializes and parses the config using a config file and the
// passed command line arguments.
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings
//  2. Pre-parse the arguments to check for an alternative config file
//  3. Load configuration file overwriting defaults with any specified options
//  4. Parse the arguments and overwrite/add any specified options
//
// The above results in functioning properly without any config settings
// while still allowing the user to override settings with config files and
// arguments.  Arguments always take precedence.
//
// Unless file logging is disabled, the log rotator is initialized in the log
// directory.  The debug levels are applied to every subsystem.
func LoadConfig(args []string) (*Config, []string, error) {
	// Default config.
	cfg := Config{
		ConfigFile:       defaultConfigFile,
		DataDir:          defaultDataDir,
		LogDir:           defaultLogDir,
		DebugLevel:       defaultLogLevel,
		DbType:           defaultDbType,
		SigCacheMaxSize:  defaultSigCacheMaxSize,
		HashCacheMaxSize: defaultHashCacheSize,
		ScriptFlags:      defaultScriptFlags,
	}

	// Pre-parse the arguments to see if an alternative config file was
	// specified.  Any errors can be ignored here since they will be caught
	// by the final parse below.
	preCfg := cfg
	preParser := flags.NewParser(&preCfg, flags.None)
	_, _ = preParser.ParseArgs(args)

	// Load additional config from file.  A missing default config file is
	// not an error.
	funcName := "LoadConfig"
	parser := flags.NewParser(&cfg, flags.PassDoubleDash|flags.HelpFlag)
	configFile := cleanAndExpandPath(preCfg.ConfigFile)
	err := flags.NewIniParser(parser).ParseFile(configFile)
	if err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) || preCfg.ConfigFile != defaultConfigFile {
			return nil, nil, fmt.Errorf("%s: failed to load config "+
				"file: %w", funcName, err)
		}
	}

	// Parse the arguments again to ensure they take precedence.
	remainingArgs, err := parser.ParseArgs(args)
	if err != nil {
		return nil, nil, err
	}

	cfg.DataDir = cleanAndExpandPath(cfg.DataDir)
	cfg.LogDir = cleanAndExpandPath(cfg.LogDir)

	// Validate database type.
	if !validDbType(cfg.DbType) {
		str := "%s: The specified database type [%v] is invalid -- " +
			"supported types %v"
		return nil, nil, fmt.Errorf(str, funcName, cfg.DbType,
			engine.SupportedDrivers())
	}

	// Validate the cache sizes.
	if cfg.SigCacheMaxSize == 0 {
		str := "%s: The signature cache must hold at least one entry"
		return nil, nil, fmt.Errorf(str, funcName)
	}

	// Validate the script verification rules.
	cfg.scriptFlags, err = txscript.ParseScriptFlags(cfg.ScriptFlags)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", funcName, err)
	}

	// Initialize log rotation.  After log rotation has been initialized,
	// the logger variables may be used.
	if !cfg.NoFileLogging {
		logFile := filepath.Join(cfg.LogDir, defaultLogFilename)
		if err := blog.InitLogRotator(logFile); err != nil {
			return nil, nil, fmt.Errorf("%s: %w", funcName, err)
		}
	}

	// Parse, validate, and set debug log level(s).
	if err := blog.ParseAndSetDebugLevels(cfg.DebugLevel); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", funcName, err)
	}
	UseLogger(blog.VrfyLog)

	return &cfg, remainingArgs, nil
}
