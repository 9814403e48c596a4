// Package prefixlist provides a flag.Value holding a comma-separated list
// of token name prefixes, used by the worker's --claim-prefixes flag to
// scope which parts of the name hierarchy it claims runnable jobs under.
package prefixlist

import (
	"fmt"
	"strings"
)

// Value accumulates name prefixes into target. Each prefix must start
// with a slash, since every token name is rooted at "/".
type Value struct {
	target *[]string
}

// New creates a prefix list value writing into target.
func New(target *[]string) *Value {
	return &Value{target: target}
}

// Set implements the flag.Value interface. The input is a comma-separated
// list; whitespace around entries is ignored and empty entries are
// dropped, so trailing commas are harmless.
func (v *Value) Set(s string) error {
	for _, part := range strings.Split(s, ",") {
		prefix := strings.TrimSpace(part)
		if prefix == "" {
			continue
		}
		if !strings.HasPrefix(prefix, "/") {
			return fmt.Errorf("claim prefix must start with '/': %q", prefix)
		}
		*v.target = append(*v.target, prefix)
	}
	return nil
}

// FromEnv implements ff/v4's environmentally-sourced flag values.
func (v *Value) FromEnv(s string) error {
	return v.Set(s)
}

// FromFile implements ff/v4's file-sourced flag values.
func (v *Value) FromFile(s string) error {
	return v.Set(s)
}

// Reset clears the accumulated prefixes.
func (v *Value) Reset() error {
	*v.target = nil
	return nil
}

// Type implements the flag.Value interface.
func (v *Value) Type() string {
	return "prefix list"
}

// String implements the flag.Value interface.
func (v *Value) String() string {
	if v.target == nil {
		return ""
	}
	return strings.Join(*v.target, ",")
}
