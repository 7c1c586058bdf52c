// Command datalogdb is a thin demonstration driver. It has no lexer or
// parser: it builds a fixed program of facts, rules, and queries directly
// as datalog.Rule values, the same way the core's own tests exercise the
// engine, and prints the answers to each query.
package main

import (
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/urfave/cli/v2"

	"github.com/kevinawalsh/datalogdb"
	"github.com/kevinawalsh/datalogdb/engine"
)

func atom(s string) datalog.Atom         { return datalog.Atom(s) }
func variable(s string) datalog.Variable { return datalog.Variable(s) }

func fact(relation string, args ...string) datalog.Rule {
	params := make([]datalog.AtomicTerm, len(args))
	for i, a := range args {
		params[i] = atom(a)
	}
	return datalog.Rule{Head: datalog.CompoundTerm{Relation: relation, Params: params}}
}

// demoProgram builds an ancestor-over-parent example shaped like the
// recursive-view scenario: a handful of parent facts plus a recursive
// ancestor rule, then one ancestor query.
func demoProgram() []datalog.Line {
	var lines []datalog.Line
	addRule := func(r datalog.Rule) { lines = append(lines, datalog.Line{Rule: &r}) }
	addQuery := func(relation string, args ...datalog.AtomicTerm) {
		q := datalog.CompoundTerm{Relation: relation, Params: args}
		lines = append(lines, datalog.Line{Query: &q})
	}

	addRule(fact("parent", "alice", "bob"))
	addRule(fact("parent", "bob", "carol"))
	addRule(fact("parent", "carol", "dana"))

	x, y, z := variable("X"), variable("Y"), variable("Z")
	addRule(datalog.Rule{
		Head: datalog.CompoundTerm{Relation: "ancestor", Params: []datalog.AtomicTerm{x, y}},
		Body: []datalog.CompoundTerm{
			{Relation: "parent", Params: []datalog.AtomicTerm{x, y}},
		},
	})
	addRule(datalog.Rule{
		Head: datalog.CompoundTerm{Relation: "ancestor", Params: []datalog.AtomicTerm{x, y}},
		Body: []datalog.CompoundTerm{
			{Relation: "parent", Params: []datalog.AtomicTerm{x, z}},
			{Relation: "ancestor", Params: []datalog.AtomicTerm{z, y}},
		},
	})

	addQuery("ancestor", atom("alice"), y)
	return lines
}

func run(dataDir string, log hclog.Logger) error {
	eng, err := engine.Open(dataDir, engine.WithLogger(log))
	if err != nil {
		return err
	}
	defer func() {
		if err := eng.Close(); err != nil {
			log.Error("close failed", "error", err)
		}
	}()

	for _, line := range demoProgram() {
		answers, err := eng.Process(line)
		if err != nil {
			return err
		}
		if line.Query != nil {
			fmt.Printf("query %s:\n", line.Query.String())
			for _, a := range answers {
				fmt.Printf("  %s\n", a.String())
			}
		}
	}
	return nil
}

func main() {
	log := hclog.New(&hclog.LoggerOptions{Name: "datalogdb", Level: hclog.Info})

	app := &cli.App{
		Name:  "datalogdb",
		Usage: "run the built-in demo program against a datalogdb store",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "data-dir",
				Value: "./data",
				Usage: "directory holding the on-disk relation catalog",
			},
		},
		Action: func(c *cli.Context) error {
			return run(c.String("data-dir"), log)
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Error("datalogdb failed", "error", err)
		os.Exit(1)
	}
}
