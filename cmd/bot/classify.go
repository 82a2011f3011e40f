package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xaenox/askbot/internal/classifier"
)

var classifyCategory string

var classifyCmd = &cobra.Command{
	Use:   "classify [text...]",
	Short: "Print keyword scores and the routing verdict for a question",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runClassify,
}

func init() {
	classifyCmd.Flags().StringVar(&classifyCategory, "category", string(classifier.Default), "category the question is asked in")
}

func runClassify(cmd *cobra.Command, args []string) error {
	asserted, ok := classifier.Parse(classifyCategory)
	if !ok {
		return fmt.Errorf("unknown category %q", classifyCategory)
	}

	text := strings.Join(args, " ")
	clf := classifier.NewKeywordClassifier()
	out := cmd.OutOrStdout()

	for _, r := range clf.Scores(text) {
		def, _ := classifier.Lookup(r.Category)
		fmt.Fprintf(out, "%-12s %s %d\n", r.Category, def.Emoji, r.Count)
	}

	verdict := clf.Check(text, asserted)
	if verdict.Mismatch {
		fmt.Fprintf(out, "\nredirect to %s\n%s\n", verdict.Detected.ID, classifier.Guidance(verdict.Detected))
		return nil
	}
	fmt.Fprintf(out, "\nanswer in %s\n", asserted)
	return nil
}
