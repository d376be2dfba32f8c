package main

import "testing"

func TestServeCmd(t *testing.T) {
	cmd := serveCmd()
	if cmd.Use != "serve" {
		t.Errorf("Use = %q, want serve", cmd.Use)
	}
	if cmd.RunE == nil {
		t.Error("serve command has no RunE")
	}
}

func TestMigrateCmd_Subcommands(t *testing.T) {
	cmd := migrateCmd()
	if cmd.Use != "migrate" {
		t.Errorf("Use = %q, want migrate", cmd.Use)
	}

	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"up", "status"} {
		if !names[want] {
			t.Errorf("missing migrate subcommand %q", want)
		}
	}
}

func TestMigrateUp_DirFlag(t *testing.T) {
	cmd := migrateCmd()
	for _, sub := range cmd.Commands() {
		if sub.Name() != "up" {
			continue
		}
		f := sub.Flags().Lookup("dir")
		if f == nil {
			t.Fatal("up command missing --dir flag")
		}
		if f.DefValue != "./migrations" {
			t.Errorf("--dir default = %q, want ./migrations", f.DefValue)
		}
	}
}
