// Copyright (C) 2025 sage-x-project
// SPDX-License-Identifier: LGPL-3.0-or-later

package main

import (
	"testing"

	"github.com/streamdps/dps/pkg/codec"
)

func TestParseTyped(t *testing.T) {
	cases := []struct {
		raw  string
		tag  string
		want interface{}
	}{
		{"hello", codec.TypeString, "hello"},
		{"42", codec.TypeInt64, int64(42)},
		{"-7", codec.TypeInt64, int64(-7)},
		{"3.5", codec.TypeFloat64, 3.5},
		{"true", codec.TypeBool, true},
	}
	for _, c := range cases {
		got, err := parseTyped(c.raw, c.tag)
		if err != nil {
			t.Fatalf("parseTyped(%q, %q): %v", c.raw, c.tag, err)
		}
		if got != c.want {
			t.Errorf("parseTyped(%q, %q) = %v, want %v", c.raw, c.tag, got, c.want)
		}
	}
}

func TestParseTyped_Blob(t *testing.T) {
	got, err := parseTyped("bytes", codec.TypeBlob)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, ok := got.([]byte)
	if !ok || string(b) != "bytes" {
		t.Errorf("expected []byte(\"bytes\"), got %v", got)
	}
}

func TestParseTyped_InvalidInt(t *testing.T) {
	if _, err := parseTyped("not-a-number", codec.TypeInt64); err == nil {
		t.Error("expected error parsing invalid int64")
	}
}

func TestParseTyped_UnknownTag(t *testing.T) {
	if _, err := parseTyped("x", "unknown"); err == nil {
		t.Error("expected error for unknown type tag")
	}
}

func TestFormatTyped(t *testing.T) {
	if got := formatTyped("hello"); got != "hello" {
		t.Errorf("formatTyped(string) = %q, want %q", got, "hello")
	}
	if got := formatTyped(int64(42)); got != "42" {
		t.Errorf("formatTyped(int64) = %q, want %q", got, "42")
	}
	if got := formatTyped([]byte("blob")); got != "blob" {
		t.Errorf("formatTyped([]byte) = %q, want %q", got, "blob")
	}
}
