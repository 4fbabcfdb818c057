package postgres_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Gunvolt24/datapipe/internal/ports"
	"github.com/Gunvolt24/datapipe/internal/repo/postgres"
)

func TestDSN(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   ports.DBParams
		want string
	}{
		{
			name: "full",
			in:   ports.DBParams{Host: "db", Port: 6432, Name: "events", User: "app", Password: "p@ss", SSLMode: "disable"},
			want: "postgres://app:p%40ss@db:6432/events?sslmode=disable",
		},
		{
			name: "default port, no ssl mode",
			in:   ports.DBParams{Host: "localhost", Name: "events", User: "app"},
			want: "postgres://app:@localhost:5432/events",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, postgres.DSN(tt.in))
		})
	}
}

func TestCopySQL(t *testing.T) {
	t.Parallel()

	require.Equal(t, `COPY "purchase" FROM STDIN WITH (FORMAT text, DELIMITER ',')`, postgres.CopySQL("purchase", ','))
	require.Equal(t, `COPY "we""ird" FROM STDIN WITH (FORMAT text, DELIMITER '''')`, postgres.CopySQL(`we"ird`, '\''))
}
