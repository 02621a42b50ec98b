package main

import (
	"testing"
)

func TestMigrateCmd_Subcommands(t *testing.T) {
	cmd := migrateCmd()

	names := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}

	for _, want := range []string{"up", "status"} {
		if !names[want] {
			t.Errorf("expected migrate subcommand %q", want)
		}
	}
}

func TestScoreCmd_Defaults(t *testing.T) {
	cmd := scoreCmd()

	severity, err := cmd.Flags().GetString("severity")
	if err != nil {
		t.Fatalf("severity flag: %v", err)
	}
	if severity != "medium" {
		t.Errorf("expected default severity medium, got %s", severity)
	}

	age, err := cmd.Flags().GetInt("age")
	if err != nil {
		t.Fatalf("age flag: %v", err)
	}
	if age != 30 {
		t.Errorf("expected default age 30, got %d", age)
	}
}

func TestServeCmd_Name(t *testing.T) {
	if got := serveCmd().Name(); got != "serve" {
		t.Errorf("expected serve, got %s", got)
	}
}
