// ABOUTME: Interactive capacity prompt - re-asks until the answer is an integer
// ABOUTME: inside the supported pool capacity range.
package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/2389-research/arbiter/simulation"
)

var ErrNoInput = errors.New("no capacity entered")

// PromptCapacity asks on out and reads answers from in until one is valid.
func PromptCapacity(in io.Reader, out io.Writer) (int, error) {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprintf(out, "Pool capacity (%d-%d): ", simulation.MinCapacity, simulation.MaxCapacity)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return 0, err
			}
			return 0, ErrNoInput
		}
		answer := strings.TrimSpace(scanner.Text())
		n, err := strconv.Atoi(answer)
		if err != nil {
			fmt.Fprintf(out, "%q is not a number\n", answer)
			continue
		}
		if err := simulation.ValidateCapacity(n); err != nil {
			fmt.Fprintln(out, err)
			continue
		}
		return n, nil
	}
}
