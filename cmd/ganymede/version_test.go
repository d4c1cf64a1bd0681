package main

import "testing"

func TestVersionCommandExists(t *testing.T) {
	if versionCmd == nil {
		t.Fatal("versionCmd is nil")
	}
	if versionCmd.Use != "version" {
		t.Errorf("versionCmd.Use = %q, want %q", versionCmd.Use, "version")
	}
	if versionCmd.Short == "" {
		t.Error("versionCmd.Short should not be empty")
	}
	if versionCmd.Run == nil {
		t.Error("versionCmd.Run should not be nil")
	}
}

func TestRootCommandWiring(t *testing.T) {
	wantSubcommands := map[string]bool{
		"run":      false,
		"validate": false,
		"version":  false,
	}

	for _, cmd := range rootCmd.Commands() {
		if _, ok := wantSubcommands[cmd.Name()]; ok {
			wantSubcommands[cmd.Name()] = true
		}
	}

	for name, found := range wantSubcommands {
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}

	if flag := rootCmd.PersistentFlags().Lookup("config"); flag == nil {
		t.Error("--config flag not registered")
	}
}
