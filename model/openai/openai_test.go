package openai

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hupe1980/memora/model"
)

func TestBuildMessages(t *testing.T) {
	msgs := buildMessages(model.Request{
		System: "be terse",
		Messages: []model.Message{
			{Role: model.RoleUser, Content: "hi"},
			{Role: model.RoleAssistant, Content: "hello"},
			{Role: "tool", Content: "observation"},
		},
	})

	assert.Len(t, msgs, 4)
	assert.NotNil(t, msgs[0].OfSystem)
	assert.NotNil(t, msgs[1].OfUser)
	assert.NotNil(t, msgs[2].OfAssistant)
	assert.NotNil(t, msgs[3].OfUser, "unknown roles are sent as user turns")
}

func TestNewModel_Options(t *testing.T) {
	m := NewModel(func(o *Options) {
		o.Model = "llama3"
		o.BaseURL = "http://localhost:11434/v1"
		o.APIKey = "ollama"
		o.Provider = "ollama"
	})

	assert.Equal(t, model.Info{Name: "llama3", Provider: "ollama"}, m.Info())
	params := m.buildParams(model.Request{Messages: []model.Message{{Role: model.RoleUser, Content: "x"}}})
	assert.Equal(t, "llama3", params.Model)
	assert.Len(t, params.Messages, 1)
}
