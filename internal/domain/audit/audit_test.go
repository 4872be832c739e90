package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildListQuery(t *testing.T) {
	query, args := buildListQuery(Filter{})
	assert.Equal(t, "SELECT id, actor, action, path, outcome, request_id, ip, detail_json, created_at FROM audit_events WHERE 1=1", query)
	assert.Empty(t, args)

	query, args = buildListQuery(Filter{Action: ActionAccessDenied, Actor: "gerente"})
	assert.Contains(t, query, "AND action = $1")
	assert.Contains(t, query, "AND actor = $2")
	assert.Equal(t, []any{ActionAccessDenied, "gerente"}, args)

	query, args = buildListQuery(Filter{Actor: "gerente"})
	assert.Contains(t, query, "AND actor = $1")
	assert.Equal(t, []any{"gerente"}, args)
}
