// The MIT License (MIT)
//
// # Copyright (c) 2024 rsacheck
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package main

import (
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"runtime"
	"time"

	"github.com/fatih/color"
	"github.com/urfave/cli"

	"github.com/rsacheck/batchgcd/corpus"
	"github.com/rsacheck/batchgcd/store"
	"github.com/rsacheck/batchgcd/tree"
)

// VERSION is populated via build flags when packaging official binaries.
var VERSION = "SELFBUILD"

func main() {
	if VERSION == "SELFBUILD" {
		// Enable timestamps + file:line to simplify debugging self-built binaries.
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	myApp := cli.NewApp()
	myApp.Name = "batchgcd"
	myApp.Usage = "scan a corpus of RSA moduli for shared prime factors"
	myApp.Version = VERSION
	myApp.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "in,i",
			Value: "moduli.csv",
			Usage: `input CSV, one "modulus" or "id,modulus" record per line`,
		},
		cli.BoolFlag{
			Name:  "hex",
			Usage: "decode moduli as base-16 instead of base-10",
		},
		cli.IntFlag{
			Name:  "workers,w",
			Value: runtime.NumCPU(),
			Usage: "number of worker threads, 1-2x physical cores works best",
		},
		cli.StringFlag{
			Name:  "workdir,d",
			Value: "",
			Usage: "scratch directory for tree levels, empty to use a fresh temp dir",
		},
		cli.Int64Flag{
			Name:  "spill",
			Value: 0,
			Usage: "spill remainder levels to disk once a level exceeds this many bytes, 0 to keep them in memory",
		},
		cli.StringFlag{
			Name:  "outdir,o",
			Value: ".",
			Usage: "directory receiving compromised.csv and duplicates.csv",
		},
		cli.StringFlag{
			Name:  "log",
			Value: "",
			Usage: "specify a log file to output, default goes to stderr",
		},
		cli.BoolFlag{
			Name:  "quiet",
			Usage: "to suppress per-finding messages, reports are still written",
		},
		cli.BoolFlag{
			Name:  "pprof",
			Usage: "start profiling server on :6060",
		},
		cli.StringFlag{
			Name:  "c",
			Value: "", // when set, the JSON file must exist on disk
			Usage: "config from json file, which will override the command from shell",
		},
	}
	myApp.Action = func(c *cli.Context) error {
		config := Config{}
		config.In = c.String("in")
		config.Hex = c.Bool("hex")
		config.Workers = c.Int("workers")
		config.WorkDir = c.String("workdir")
		config.Spill = c.Int64("spill")
		config.OutDir = c.String("outdir")
		config.Log = c.String("log")
		config.Quiet = c.Bool("quiet")
		config.Pprof = c.Bool("pprof")

		if c.String("c") != "" {
			// Only JSON configuration files are supported at the moment.
			err := parseJSONConfig(&config, c.String("c"))
			checkError(err)
		}

		// Redirect logs when the user supplied a dedicated log file.
		if config.Log != "" {
			f, err := os.OpenFile(config.Log, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
			checkError(err)
			defer f.Close()
			log.SetOutput(f)
		}

		if config.Workers < 1 {
			log.Printf("workers %d is not positive, falling back to %d", config.Workers, runtime.NumCPU())
			config.Workers = runtime.NumCPU()
		}

		// Without a pinned workdir, use a fresh temp directory; stale entries
		// from a previous run would alias (level, slot) names.
		scratch := config.WorkDir
		if scratch == "" {
			dir, err := os.MkdirTemp("", "batchgcd-")
			checkError(err)
			scratch = dir
		}

		log.Println("version:", VERSION)
		log.Println("input:", config.In)
		log.Println("hex:", config.Hex)
		log.Println("workers:", config.Workers)
		log.Println("workdir:", scratch)
		log.Println("spill:", config.Spill)
		log.Println("outdir:", config.OutDir)
		log.Println("quiet:", config.Quiet)
		log.Println("pprof:", config.Pprof)

		// Start the pprof server if the feature is enabled.
		if config.Pprof {
			go http.ListenAndServe(":6060", nil)
		}

		crp, err := corpus.Load(config.In, config.Hex)
		checkError(err)
		log.Println("corpus loaded:", crp.Len(), "moduli")

		checkError(tree.Validate(crp.Moduli))

		st, err := store.New(scratch)
		checkError(err)
		pool := tree.NewPool(config.Workers)

		// Part A: the product tree. After this the in-memory moduli are
		// redundant; every level sits in the store.
		start := time.Now()
		h, err := tree.Build(st, crp.Moduli, pool)
		checkError(err)
		log.Println("product tree built:", h+1, "levels in", time.Since(start))

		// Part B: descend Z through the squared product nodes.
		start = time.Now()
		rems, err := tree.Descend(st, crp.Len(), h, pool, config.Spill)
		checkError(err)
		log.Println("remainder tree descended in", time.Since(start))

		// Part C: per-leaf division and gcd.
		start = time.Now()
		g, err := tree.Finalize(st, rems, pool)
		checkError(err)
		log.Println("finalized in", time.Since(start))

		rep, err := corpus.Classify(crp, g)
		checkError(err)
		checkError(rep.WriteFiles(config.OutDir))

		if !config.Quiet {
			for _, f := range rep.Compromised {
				color.Red("compromised: id %s factor %s", f.ID, f.Factor.String())
			}
			for _, d := range rep.Duplicates {
				color.Yellow("duplicate: id %s", d.ID)
			}
		}
		log.Println("compromised:", len(rep.Compromised))
		log.Println("duplicates:", len(rep.Duplicates))

		// Keep the scratch directory only when the operator pinned one;
		// on a fatal error we exit above and leave it intact for debugging.
		if config.WorkDir == "" {
			os.RemoveAll(scratch)
		}
		return nil
	}
	myApp.Run(os.Args)
}

func checkError(err error) {
	if err != nil {
		log.Printf("%+v\n", err)
		os.Exit(-1)
	}
}
