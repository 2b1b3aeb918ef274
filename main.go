// Package main is the entry point for the tennismc CLI tool, which learns
// per-player serve/return chains from point-by-point records and estimates
// match win probabilities by Monte Carlo simulation.
package main

import "github.com/pable/go-tennis-mc/cmd"

func main() {
	cmd.Execute()
}
