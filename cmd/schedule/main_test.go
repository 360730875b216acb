package main

import (
	"reflect"
	"testing"
)

func TestRewriteDirectItemLookupArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "no args",
			in:   []string{"schedule"},
			want: []string{"schedule"},
		},
		{
			name: "id first token",
			in:   []string{"schedule", "42"},
			want: []string{"schedule", "items", "show", "42"},
		},
		{
			name: "id after value flag",
			in:   []string{"schedule", "--server", "http://localhost:9000", "42"},
			want: []string{"schedule", "--server", "http://localhost:9000", "items", "show", "42"},
		},
		{
			name: "id after equals flag",
			in:   []string{"schedule", "--format=text", "7"},
			want: []string{"schedule", "--format=text", "items", "show", "7"},
		},
		{
			name: "id after bool flag",
			in:   []string{"schedule", "--pretty", "7"},
			want: []string{"schedule", "--pretty", "items", "show", "7"},
		},
		{
			name: "id after double dash",
			in:   []string{"schedule", "--", "7"},
			want: []string{"schedule", "--", "items", "show", "7"},
		},
		{
			name: "subcommand not rewritten",
			in:   []string{"schedule", "items", "move", "7", "--by", "1d"},
			want: []string{"schedule", "items", "move", "7", "--by", "1d"},
		},
		{
			name: "zero and negative are not ids",
			in:   []string{"schedule", "0"},
			want: []string{"schedule", "0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := rewriteDirectItemLookupArgs(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("rewriteDirectItemLookupArgs:\n got: %#v\nwant: %#v", got, tt.want)
			}
		})
	}
}
