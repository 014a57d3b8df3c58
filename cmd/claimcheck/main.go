// Command claimcheck validates claim JSON files against the claim schema
// registry without a database or any external service.
// Usage: go run ./cmd/claimcheck [-schemas dir] [-json] file.json [file.json ...]
// A file name of "-" reads from stdin. Exit status is 0 when every claim is
// valid, 1 when any claim has violations and 2 on usage or input errors.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"claimintake/internal/domain"
	"claimintake/internal/schema"
	"claimintake/internal/service"
	"claimintake/internal/validator"
)

type report struct {
	File          string                `json:"file"`
	Valid         bool                  `json:"valid"`
	ClaimType     domain.ClaimType      `json:"claimType,omitempty"`
	SchemaID      string                `json:"schemaId,omitempty"`
	SchemaVersion string                `json:"schemaVersion,omitempty"`
	Violations    []validator.Violation `json:"violations"`
	Error         string                `json:"error,omitempty"`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("claimcheck", flag.ContinueOnError)
	fs.SetOutput(stderr)
	schemaDir := fs.String("schemas", "", "directory of extra claim schemas")
	asJSON := fs.Bool("json", false, "print one JSON report per line")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(stderr, "usage: claimcheck [-schemas dir] [-json] file.json [file.json ...]")
		return 2
	}

	registry, err := schema.Load(*schemaDir)
	if err != nil {
		fmt.Fprintf(stderr, "loading schemas: %v\n", err)
		return 2
	}
	claims := service.NewClaimService(registry)

	status := 0
	for _, name := range fs.Args() {
		rep := check(claims, name, stdin)
		switch {
		case rep.Error != "":
			status = 2
		case !rep.Valid && status == 0:
			status = 1
		}
		if *asJSON {
			_ = json.NewEncoder(stdout).Encode(rep)
		} else {
			printText(stdout, rep)
		}
	}
	return status
}

func check(claims service.ClaimService, name string, stdin io.Reader) report {
	rep := report{File: name, Violations: []validator.Violation{}}

	raw, err := readInput(name, stdin)
	if err != nil {
		rep.Error = err.Error()
		return rep
	}
	if !json.Valid(raw) {
		rep.Error = "not a JSON document"
		return rep
	}

	result, err := claims.Validate(raw)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownClaimType) {
			rep.Violations = append(rep.Violations, validator.Violation{
				Path:       "claimType",
				Constraint: validator.ConstraintEnum,
				Message:    err.Error(),
			})
			return rep
		}
		rep.Error = err.Error()
		return rep
	}

	rep.Valid = result.Valid()
	rep.ClaimType = result.ClaimType
	rep.SchemaID = result.SchemaID
	rep.SchemaVersion = result.SchemaVersion
	if result.Violations != nil {
		rep.Violations = result.Violations
	}
	return rep
}

func readInput(name string, stdin io.Reader) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(name)
}

func printText(w io.Writer, rep report) {
	switch {
	case rep.Error != "":
		fmt.Fprintf(w, "%s: error: %s\n", rep.File, rep.Error)
	case rep.Valid:
		fmt.Fprintf(w, "%s: valid %s (%s %s)\n", rep.File, rep.ClaimType, rep.SchemaID, rep.SchemaVersion)
	default:
		fmt.Fprintf(w, "%s: %d violation(s)\n", rep.File, len(rep.Violations))
		for _, v := range rep.Violations {
			fmt.Fprintf(w, "  %s [%s] %s\n", v.Path, v.Constraint, v.Message)
		}
	}
}
