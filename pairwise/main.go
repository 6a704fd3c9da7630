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
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/urfave/cli"

	"github.com/rsacheck/batchgcd/corpus"
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
	myApp.Name = "pairwise"
	myApp.Usage = "brute-force gcd audit over a corpus of RSA moduli (quadratic, small corpora only)"
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
		config.OutDir = c.String("outdir")
		config.Log = c.String("log")
		config.Quiet = c.Bool("quiet")

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

		log.Println("version:", VERSION)
		log.Println("input:", config.In)
		log.Println("hex:", config.Hex)
		log.Println("outdir:", config.OutDir)
		log.Println("quiet:", config.Quiet)

		crp, err := corpus.Load(config.In, config.Hex)
		checkError(err)
		log.Println("corpus loaded:", crp.Len(), "moduli")
		if crp.Len() > 10000 {
			color.Red("warning: %d moduli means ~%d gcd operations, consider the scanner binary", crp.Len(), crp.Len()*crp.Len())
		}

		checkError(tree.Validate(crp.Moduli))

		start := time.Now()
		g := corpus.Oracle(crp.Moduli)
		log.Println("pairwise scan finished in", time.Since(start))

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
