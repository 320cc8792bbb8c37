package model

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func userReq(text string, stream bool) Request {
	return Request{System: "sys", Messages: []Message{{Role: RoleUser, Content: text}}, Stream: stream}
}

func TestCollect_Streaming(t *testing.T) {
	m := NewMockModel("mock").AddResponse("hi", "hello there")

	var deltas []string
	out, err := Collect(context.Background(), m, userReq("hi", true), func(d string) { deltas = append(deltas, d) })
	require.NoError(t, err)
	assert.Equal(t, "hello there", out)
	assert.Equal(t, "hello there", strings.Join(deltas, ""))
	assert.Len(t, deltas, len("hello there"))
}

func TestCollect_ScriptAndFallback(t *testing.T) {
	m := NewMockModel("mock").Script("first", "second")

	for _, want := range []string{"first", "second", "Mock response to: q"} {
		out, err := Collect(context.Background(), m, userReq("q", false), nil)
		require.NoError(t, err)
		assert.Equal(t, want, out)
	}
	assert.Len(t, m.Requests(), 3)
	assert.Equal(t, "sys", m.Requests()[0].System)
}

func TestCollect_Errors(t *testing.T) {
	boom := errors.New("rate limited")
	_, err := Collect(context.Background(), NewMockModel("m").FailWith(boom), userReq("x", false), nil)
	assert.ErrorIs(t, err, boom)

	_, err = Collect(context.Background(), NewMockModel("m").Script("   "), userReq("x", false), nil)
	assert.ErrorIs(t, err, ErrEmptyResponse)

	_, err = Collect(context.Background(), NewMockModel("m"), Request{}, nil)
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Collect(ctx, NewMockModel("m"), userReq("x", true), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRouter(t *testing.T) {
	r := NewRouter()
	_, err := r.Get("")
	assert.ErrorIs(t, err, ErrUnknownModel)

	require.NoError(t, r.Register(Entry{ID: "local", Model: NewMockModel("llama3"), Stream: true}))
	require.NoError(t, r.Register(Entry{ID: "cloud", Description: "Cloud model", Model: NewMockModel("gpt")}))
	assert.Error(t, r.Register(Entry{ID: "nil"}))

	e, err := r.Get("")
	require.NoError(t, err)
	assert.Equal(t, "local", e.ID)
	assert.Equal(t, "local", e.Description)
	assert.Equal(t, "mock", e.Provider)
	assert.Equal(t, "llama3", e.Name)

	require.NoError(t, r.SetDefault("cloud"))
	assert.Equal(t, "cloud", r.Default())
	assert.Error(t, r.SetDefault("missing"))

	_, err = r.Get("missing")
	require.ErrorIs(t, err, ErrUnknownModel)
	assert.Contains(t, err.Error(), "available: cloud, local")

	ids := []string{}
	for _, e := range r.List() {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []string{"cloud", "local"}, ids)
}
