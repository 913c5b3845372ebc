// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/coinframe/btcproto/txscript"
	"github.com/coinframe/btcproto/wire"
	flags "github.com/jessevdk/go-flags"
)

const (
	defaultLogLevel     = "info"
	defaultLogDirname   = "logs"
	defaultLogFilename  = "btcprotoctl.log"
	defaultSigCacheSize = 10000
	defaultScriptFlags  = "STANDARD"
)

var (
	defaultHomeDir = btcutil.AppDataDir("btcprotoctl", false)
	defaultLogDir  = filepath.Join(defaultHomeDir, defaultLogDirname)
)

// netParams describes the parts of a bitcoin network the tool cares about.
type netParams struct {
	name             string
	net              wire.BitcoinNet
	pubKeyHashAddrID byte
	scriptHashAddrID byte
}

var (
	mainNetParams = netParams{
		name:             "mainnet",
		net:              wire.MainNet,
		pubKeyHashAddrID: 0x00,
		scriptHashAddrID: 0x05,
	}
	testNet3Params = netParams{
		name:             "testnet3",
		net:              wire.TestNet3,
		pubKeyHashAddrID: 0x6f,
		scriptHashAddrID: 0xc4,
	}
	regressionNetParams = netParams{
		name:             "regtest",
		net:              wire.RegTest,
		pubKeyHashAddrID: 0x6f,
		scriptHashAddrID: 0xc4,
	}
)

// config defines the configuration options for btcprotoctl.
//
// See loadConfig for details on the configuration load process.
type config struct {
	ShowVersion  bool   `short:"V" long:"version" description:"Display version information and exit"`
	TestNet3     bool   `long:"testnet" description:"Use the test network"`
	RegTest      bool   `long:"regtest" description:"Use the regression test network"`
	ProtocolVer  uint32 `long:"pver" description:"Protocol version used to decode and encode messages"`
	DebugLevel   string `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems -- Use show to list available subsystems"`
	LogDir       string `long:"logdir" description:"Directory to log output; no log file is written when empty"`
	ScriptFlags  string `long:"flags" description:"Comma separated script verification flags such as P2SH,DERSIG -- NONE and STANDARD select no flags and the standard set"`
	SigCacheSize uint   `long:"sigcachesize" description:"The maximum number of entries in the signature verification cache; 0 disables it"`

	params   netParams
	flags    txscript.ScriptFlags
	sigCache *txscript.SigCache
}

// validLogLevel returns whether or not logLevel is a valid debug log level.
func validLogLevel(logLevel string) bool {
	switch logLevel {
	case "trace":
		fallthrough
	case "debug":
		fallthrough
	case "info":
		fallthrough
	case "warn":
		fallthrough
	case "error":
		fallthrough
	case "critical":
		return true
	}
	return false
}

// supportedSubsystems returns a sorted slice of the supported subsystems for
// logging purposes.
func supportedSubsystems() []string {
	// Convert the subsystemLoggers map keys to a slice.
	subsystems := make([]string, 0, len(subsystemLoggers))
	for subsysID := range subsystemLoggers {
		subsystems = append(subsystems, subsysID)
	}

	// Sort the subsystems for stable display.
	sort.Strings(subsystems)
	return subsystems
}

// parseAndSetDebugLevels attempts to parse the specified debug level and set
// the levels accordingly.  An appropriate error is returned if anything is
// invalid.
func parseAndSetDebugLevels(debugLevel string) error {
	// When the specified string doesn't have any delimiters, treat it as
	// the log level for all subsystems.
	if !strings.Contains(debugLevel, ",") && !strings.Contains(debugLevel, "=") {
		// Validate debug log level.
		if !validLogLevel(debugLevel) {
			str := "the specified debug level [%v] is invalid"
			return fmt.Errorf(str, debugLevel)
		}

		// Change the logging level for all subsystems.
		setLogLevels(debugLevel)

		return nil
	}

	// Split the specified string into subsystem/level pairs while detecting
	// issues and update the log levels accordingly.
	for _, logLevelPair := range strings.Split(debugLevel, ",") {
		if !strings.Contains(logLevelPair, "=") {
			str := "the specified debug level contains an invalid " +
				"subsystem/level pair [%v]"
			return fmt.Errorf(str, logLevelPair)
		}

		// Extract the specified subsystem and log level.
		fields := strings.Split(logLevelPair, "=")
		subsysID, logLevel := fields[0], fields[1]

		// Validate subsystem.
		if _, exists := subsystemLoggers[subsysID]; !exists {
			str := "the specified subsystem [%v] is invalid -- " +
				"supported subsystems %v"
			return fmt.Errorf(str, subsysID, supportedSubsystems())
		}

		// Validate log level.
		if !validLogLevel(logLevel) {
			str := "the specified debug level [%v] is invalid"
			return fmt.Errorf(str, logLevel)
		}

		setLogLevel(subsysID, logLevel)
	}

	return nil
}

// errShowSubsystems is returned by loadConfig when the caller asked for the
// list of logging subsystems instead of running a command.
var errShowSubsystems = errors.New("subsystems shown")

// loadConfig initializes and parses the config using command line options.
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings
//  2. Parse CLI options and overwrite/add any specified options
//
// The remaining arguments name the command to run and its parameters.
func loadConfig(args []string) (*config, []string, error) {
	// Default config.
	cfg := config{
		ProtocolVer:  wire.ProtocolVersion,
		DebugLevel:   defaultLogLevel,
		ScriptFlags:  defaultScriptFlags,
		SigCacheSize: defaultSigCacheSize,
	}

	// Parse command line options.
	parser := flags.NewParser(&cfg, flags.Default)
	parser.Usage = "[OPTIONS] <command> <args...>\n\n" + listCommands()
	remainingArgs, err := parser.ParseArgs(args)
	if err != nil {
		var e *flags.Error
		if !errors.As(err, &e) || e.Type != flags.ErrHelp {
			parser.WriteHelp(os.Stderr)
		}
		return nil, nil, err
	}

	// Show the version and exit if the version flag was specified.
	funcName := "loadConfig"
	if cfg.ShowVersion {
		return &cfg, nil, nil
	}

	// Multiple networks can't be selected simultaneously.
	numNets := 0
	cfg.params = mainNetParams
	if cfg.TestNet3 {
		numNets++
		cfg.params = testNet3Params
	}
	if cfg.RegTest {
		numNets++
		cfg.params = regressionNetParams
	}
	if numNets > 1 {
		str := "%s: the testnet and regtest params can't be used " +
			"together -- choose one of the two"
		err := fmt.Errorf(str, funcName)
		fmt.Fprintln(os.Stderr, err)
		parser.WriteHelp(os.Stderr)
		return nil, nil, err
	}

	// Special show command to list supported subsystems and exit.
	if cfg.DebugLevel == "show" {
		fmt.Println("Supported subsystems", supportedSubsystems())
		return nil, nil, errShowSubsystems
	}

	// Parse, validate, and set debug log level(s).
	if err := parseAndSetDebugLevels(cfg.DebugLevel); err != nil {
		err := fmt.Errorf("%s: %v", funcName, err.Error())
		fmt.Fprintln(os.Stderr, err)
		parser.WriteHelp(os.Stderr)
		return nil, nil, err
	}

	// Initialize the log rotator when a log directory was requested.
	if cfg.LogDir != "" {
		cfg.LogDir = cleanAndExpandPath(cfg.LogDir)
		initLogRotator(filepath.Join(cfg.LogDir, cfg.params.name,
			defaultLogFilename))
	}

	// The protocol version can't exceed what the wire package supports.
	if cfg.ProtocolVer > wire.ProtocolVersion {
		str := "%s: the protocol version %d is higher than the " +
			"maximum supported version %d"
		err := fmt.Errorf(str, funcName, cfg.ProtocolVer,
			wire.ProtocolVersion)
		fmt.Fprintln(os.Stderr, err)
		return nil, nil, err
	}

	// Parse the script verification flags.
	cfg.flags, err = txscript.ParseScriptFlags(cfg.ScriptFlags)
	if err != nil {
		err := fmt.Errorf("%s: %v", funcName, err)
		fmt.Fprintln(os.Stderr, err)
		return nil, nil, err
	}

	if cfg.SigCacheSize > 0 {
		cfg.sigCache = txscript.NewSigCache(cfg.SigCacheSize)
	}

	return &cfg, remainingArgs, nil
}

// cleanAndExpandPath expands environment variables and leading ~ in the
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
