package database_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/fiado/internal/database"
)

func TestMigrations_Embedded(t *testing.T) {
	all, err := database.Migrations()
	require.NoError(t, err)
	require.NotEmpty(t, all)

	assert.Equal(t, "0001_init.sql", all[0].Name)
	assert.Contains(t, all[0].SQL, "CREATE TABLE IF NOT EXISTS customer_accounts")
	assert.Contains(t, all[0].SQL, "UNIQUE (customer_id, store_id)")
}

func TestPending(t *testing.T) {
	all := []database.Migration{{Name: "0001_init.sql"}, {Name: "0002_more.sql"}}

	tests := []struct {
		name    string
		applied map[string]bool
		want    []string
	}{
		{name: "Fresh", applied: map[string]bool{}, want: []string{"0001_init.sql", "0002_more.sql"}},
		{name: "Partial", applied: map[string]bool{"0001_init.sql": true}, want: []string{"0002_more.sql"}},
		{name: "UpToDate", applied: map[string]bool{"0001_init.sql": true, "0002_more.sql": true}, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, m := range database.Pending(all, tt.applied) {
				got = append(got, m.Name)
			}

			assert.Equal(t, tt.want, got)
		})
	}
}
