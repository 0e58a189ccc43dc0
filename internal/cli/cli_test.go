// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import "testing"

func TestArgParserFlagsAndPositionals(t *testing.T) {
	args := NewArgParser([]string{"export", "3", "--dir", "/tmp", "--format=md", "--open"})

	if got := args.Subcommand(); got != "export" {
		t.Errorf("Subcommand = %q", got)
	}
	if got := args.Positional(1); got != "3" {
		t.Errorf("Positional(1) = %q", got)
	}
	if got := args.Flag("dir"); got != "/tmp" {
		t.Errorf("Flag(dir) = %q", got)
	}
	if got := args.Flag("format"); got != "md" {
		t.Errorf("Flag(format) = %q", got)
	}
	if !args.BoolFlag("open") {
		t.Error("BoolFlag(open) = false")
	}
	if args.BoolFlag("missing") {
		t.Error("BoolFlag(missing) = true")
	}
	if got := args.PositionalCount(); got != 2 {
		t.Errorf("PositionalCount = %d", got)
	}
}

func TestArgParserExplicitBool(t *testing.T) {
	args := NewArgParser([]string{"--open=false", "--confirm=true"})
	if args.BoolFlag("open") {
		t.Error("explicit false parsed as true")
	}
	if !args.BoolFlag("confirm") {
		t.Error("explicit true parsed as false")
	}
}

func TestArgParserEmpty(t *testing.T) {
	args := NewArgParser(nil)
	if args.Subcommand() != "" {
		t.Errorf("Subcommand = %q, want empty", args.Subcommand())
	}
	if args.Positional(0) != "" {
		t.Error("Positional(0) should be empty")
	}
	if got := args.PositionalFrom(0); got != nil {
		t.Errorf("PositionalFrom(0) = %v, want nil", got)
	}
}

func TestParseCommand(t *testing.T) {
	cases := []struct {
		args []string
		want Command
	}{
		{nil, CmdTUI},
		{[]string{"chat"}, CmdChat},
		{[]string{"chat", "--chat", "3"}, CmdChat},
		{[]string{"setup"}, CmdSetup},
		{[]string{"session", "list"}, CmdSession},
		{[]string{"sessions"}, CmdSession},
		{[]string{"config", "show"}, CmdConfig},
		{[]string{"version"}, CmdVersion},
		{[]string{"-v"}, CmdVersion},
		{[]string{"help"}, CmdHelp},
		{[]string{"bogus"}, CmdHelp},
	}
	for _, tc := range cases {
		got, _ := ParseCommand(tc.args)
		if got != tc.want {
			t.Errorf("ParseCommand(%v) = %v, want %v", tc.args, got, tc.want)
		}
	}
}

func TestParseCommandForwardsArgs(t *testing.T) {
	_, parsed := ParseCommand([]string{"session", "export", "7", "--dir", "/tmp"})
	if got := parsed.Subcommand(); got != "export" {
		t.Errorf("Subcommand = %q", got)
	}
	if got := parsed.Positional(1); got != "7" {
		t.Errorf("Positional(1) = %q", got)
	}
	if got := parsed.Flag("dir"); got != "/tmp" {
		t.Errorf("Flag(dir) = %q", got)
	}
}
