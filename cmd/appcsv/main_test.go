package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/lee-lindley/app-csv-pkg/pkg/transform"
)

func TestFlags_Options(t *testing.T) {
	tests := []struct {
		name    string
		flags   flags
		want    transform.Options
		wantErr bool
	}{
		{
			name:  "Defaults",
			flags: flags{header: true, separator: ","},
			want:  transform.DefaultOptions(),
		},
		{
			name: "TabNoHeaderFormats",
			flags: flags{
				separator:  "tab",
				protect:    true,
				dateFormat: "%Y%m%d",
			},
			want: transform.Options{
				Separator:             '\t',
				ProtectNumericStrings: true,
				DateFormat:            "%Y%m%d",
			},
		},
		{
			name:    "LongSeparator",
			flags:   flags{header: true, separator: "::"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.flags.options()
			if (err != nil) != tt.wantErr {
				t.Fatalf("options() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("options() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReadSQL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "q.sql")
	if err := os.WriteFile(path, []byte("SELECT 1"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		flags   flags
		want    string
		wantErr bool
	}{
		{name: "Inline", flags: flags{sqlText: "SELECT 2"}, want: "SELECT 2"},
		{name: "File", flags: flags{sqlFile: path}, want: "SELECT 1"},
		{name: "Both", flags: flags{sqlText: "SELECT 2", sqlFile: path}, wantErr: true},
		{name: "Neither", flags: flags{}, wantErr: true},
		{name: "MissingFile", flags: flags{sqlFile: filepath.Join(t.TempDir(), "nope.sql")}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readSQL(tt.flags)
			if (err != nil) != tt.wantErr {
				t.Fatalf("readSQL() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("readSQL() = %q, want %q", got, tt.want)
			}
		})
	}
}
