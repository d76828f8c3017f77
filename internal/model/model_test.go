package model

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthResponse_Session_AdminFieldVariants(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		body string
		want bool
	}{
		{"isAdmin true", `{"id":1,"name":"Jane","email":"jane@x.com","isAdmin":true}`, true},
		{"admin true", `{"id":1,"name":"Jane","email":"jane@x.com","admin":true}`, true},
		{"both false", `{"id":1,"name":"Jane","email":"jane@x.com","isAdmin":false,"admin":false}`, false},
		{"absent", `{"id":1,"name":"Jane","email":"jane@x.com"}`, false},
		{"mixed", `{"id":1,"name":"Jane","email":"jane@x.com","isAdmin":false,"admin":true}`, true},
	}
	for _, tc := range cases {
		var r AuthResponse
		require.NoError(t, json.Unmarshal([]byte(tc.body), &r), tc.name)
		s := r.Session()
		assert.Equal(t, tc.want, s.IsAdmin, tc.name)
		assert.Equal(t, Session{ID: 1, Name: "Jane", Email: "jane@x.com", IsAdmin: tc.want}, s, tc.name)
	}
}

func TestQueue_DecodeCartAndPractice(t *testing.T) {
	t.Parallel()

	cart := `{"items":[{"id":7,"articleId":3,"articleName":"Pen","articlePrice":2.50,"quantity":2,
		"availableQuantity":10,"totalPrice":5.00,"currency":"USD"}],"totalPrice":5.00,"totalItems":2,"currency":"USD"}`
	var q Queue
	require.NoError(t, json.Unmarshal([]byte(cart), &q))
	require.Len(t, q.Items, 1)
	it := q.Items[0]
	assert.Equal(t, int64(3), it.Ref())
	assert.Equal(t, 2, it.Count())
	assert.True(t, it.LineTotal.Equal(decimal.RequireFromString("5")))
	assert.True(t, q.TotalPrice.Equal(decimal.RequireFromString("5.00")))

	line, ok := q.Line(7)
	assert.True(t, ok)
	assert.Equal(t, "Pen", line.ArticleName)
	_, ok = q.Line(8)
	assert.False(t, ok)

	practice := `{"items":[{"id":1,"flashcardId":42,"practiceCount":3,"availableQuantity":99}],"totalItems":3,"currency":"PTS"}`
	var p Queue
	require.NoError(t, json.Unmarshal([]byte(practice), &p))
	assert.Equal(t, int64(42), p.Items[0].Ref())
	assert.Equal(t, 3, p.Items[0].Count())
	assert.False(t, p.Empty())
	assert.True(t, Queue{}.Empty())
}

func TestPage_Navigation(t *testing.T) {
	t.Parallel()

	p := Page[Article]{Number: 0, TotalPages: 3}
	assert.True(t, p.HasNext())
	assert.False(t, p.HasPrev())
	p.Number = 2
	assert.False(t, p.HasNext())
	assert.True(t, p.HasPrev())
	assert.False(t, Page[Article]{}.HasNext())
}
