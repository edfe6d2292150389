package querybuilder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild(t *testing.T) {
	tests := []struct {
		name      string
		builder   QueryBuilder
		wantQuery string
		wantArgs  []interface{}
	}{
		{
			name:      "select with where and order",
			builder:   NewQueryBuilder("public").Select("id", "name").From("judge_client").Where("key = ?", "k").OrderBy("id", true),
			wantQuery: "SELECT id, name FROM public.judge_client WHERE key = ? ORDER BY id ASC",
			wantArgs:  []interface{}{"k"},
		},
		{
			name:      "select with or and limit",
			builder:   NewQueryBuilder("").Select("id").From("t").Where("a = ?", 1).Or("b = ?", 2).Limit(1),
			wantQuery: "SELECT id FROM t WHERE a = ? OR b = ? LIMIT 1",
			wantArgs:  []interface{}{1, 2},
		},
		{
			name:      "insert returning",
			builder:   NewQueryBuilder("public").Insert("name", "key").Into("judge_client").Values("a", "k").Returning("id"),
			wantQuery: "INSERT INTO public.judge_client (name, key) VALUES (?, ?) RETURNING id",
			wantArgs:  []interface{}{"a", "k"},
		},
		{
			name:      "update sorts columns",
			builder:   NewQueryBuilder("").Update("t", UpdateData{"name": "n", "key": "k"}).Where("id = ?", 3),
			wantQuery: "UPDATE t SET key = ?, name = ? WHERE id = ?",
			wantArgs:  []interface{}{"k", "n", 3},
		},
		{
			name:      "delete",
			builder:   NewQueryBuilder("public").Delete("judge_client").Where("id = ?", 4),
			wantQuery: "DELETE FROM public.judge_client WHERE id = ?",
			wantArgs:  []interface{}{4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args, err := tt.builder.Build()
			require.NoError(t, err)
			assert.Equal(t, tt.wantQuery, query)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestBuildRejectsInvalidQueries(t *testing.T) {
	tests := []struct {
		name    string
		builder QueryBuilder
	}{
		{"no table", NewQueryBuilder("").Select("id")},
		{"unconditional delete", NewQueryBuilder("").Delete("t")},
		{"row width mismatch", NewQueryBuilder("").Insert("a", "b").Into("t").Values(1)},
		{"nothing to build", NewQueryBuilder("").From("t")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := tt.builder.Build()
			assert.Error(t, err)
		})
	}
}
