package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"
)

func TestOpenSQLite(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		dsn  string
	}{
		{name: "bare path", dsn: filepath.Join(dir, "bare.db")},
		{name: "sqlite scheme", dsn: "sqlite://" + filepath.Join(dir, "scheme.db")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, err := Open(context.Background(), tt.dsn, zaptest.NewLogger(t))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			defer repo.Close()

			if err := repo.Ping(context.Background()); err != nil {
				t.Fatalf("ping: %v", err)
			}
		})
	}
}

func TestOpenRejectsUnknownScheme(t *testing.T) {
	for _, dsn := range []string{"", "  ", "mysql://root@localhost/db"} {
		_, err := Open(context.Background(), dsn, nil)
		if !errors.Is(err, ErrUnsupportedDSN) {
			t.Fatalf("dsn %q: expected ErrUnsupportedDSN, got %v", dsn, err)
		}
	}
}
