// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	flags "github.com/jessevdk/go-flags"
)

const appVersion = "0.1.0"

// btcprotoctlMain is the real main function for btcprotoctl.  It is necessary
// to work around the fact that deferred functions do not run when os.Exit()
// is called.
func btcprotoctlMain() error {
	cfg, args, err := loadConfig(os.Args[1:])
	if err != nil {
		return err
	}
	defer func() {
		if logRotator != nil {
			logRotator.Close()
		}
	}()

	if cfg.ShowVersion {
		appName := filepath.Base(os.Args[0])
		fmt.Println(appName, "version", appVersion)
		return nil
	}

	if len(args) == 0 {
		fmt.Fprint(os.Stderr, listCommands())
		return errUsage
	}

	return runCommand(cfg, os.Stdout, args)
}

func main() {
	if err := btcprotoctlMain(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return
		}
		if errors.Is(err, errShowSubsystems) {
			return
		}
		// Option parse errors were already printed by the parser.
		if !errors.As(err, &flagsErr) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
