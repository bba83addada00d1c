package validate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piyushkb/WhastapWeb/errors"
	"github.com/piyushkb/WhastapWeb/validate"
)

func fieldsOf(err error) []string {
	details := errors.Details(err)
	fields := make([]string, 0, len(details))
	for _, d := range details {
		fields = append(fields, d.Field)
	}
	return fields
}

func TestStartSession(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantField string
	}{
		{name: "valid", body: `{"session":"acct1"}`},
		{name: "missing session", body: `{}`, wantField: "session"},
		{name: "empty session", body: `{"session":""}`, wantField: "session"},
		{name: "empty body", body: ``, wantField: "session"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.StartSession.Validate([]byte(tt.body))
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.IsInvalid(err))
			assert.Contains(t, fieldsOf(err), tt.wantField)
		})
	}
}

func TestSendText(t *testing.T) {
	err := validate.SendText.Validate([]byte(`{"session":"acct1","to":"+1555","message":"hi"}`))
	assert.NoError(t, err)

	err = validate.SendText.Validate([]byte(`{"session":"acct1","to":"+1555"}`))
	require.Error(t, err)
	assert.Contains(t, fieldsOf(err), "message")

	err = validate.SendText.Validate([]byte(`{"session":"acct1","to":"+1555","message":""}`))
	require.Error(t, err)
	assert.Contains(t, fieldsOf(err), "message")
}

func TestSendImage_RejectsInvalidURL(t *testing.T) {
	err := validate.SendImage.Validate([]byte(
		`{"session":"acct1","to":"+1555","message":"pic","image":"https://cdn.example.com/a.jpg"}`))
	assert.NoError(t, err)

	err = validate.SendImage.Validate([]byte(
		`{"session":"acct1","to":"+1555","message":"pic","image":"not-a-url"}`))
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
	assert.Contains(t, fieldsOf(err), "image")
}

func TestSendDocument(t *testing.T) {
	valid := `{"session":"acct1","to":"+1555","message":"doc",` +
		`"document":"https://cdn.example.com/a.pdf","document_name":"a.pdf"}`
	assert.NoError(t, validate.SendDocument.Validate([]byte(valid)))

	missingName := `{"session":"acct1","to":"+1555",` +
		`"document":"https://cdn.example.com/a.pdf"}`
	err := validate.SendDocument.Validate([]byte(missingName))
	require.Error(t, err)
	assert.Contains(t, fieldsOf(err), "document_name")

	badURL := `{"session":"acct1","to":"+1555",` +
		`"document":"not-a-url","document_name":"a.pdf"}`
	err = validate.SendDocument.Validate([]byte(badURL))
	require.Error(t, err)
	assert.Contains(t, fieldsOf(err), "document")
}

func TestSendVideo_RejectsInvalidURL(t *testing.T) {
	err := validate.SendVideo.Validate([]byte(
		`{"session":"acct1","to":"+1555","video":"not-a-url"}`))
	require.Error(t, err)
	assert.Contains(t, fieldsOf(err), "video")
}

func TestValidate_MalformedJSON(t *testing.T) {
	err := validate.SendText.Validate([]byte(`{"session":`))
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestValidate_MultipleViolationsReportAllFields(t *testing.T) {
	err := validate.SendDocument.Validate([]byte(`{"session":"acct1"}`))
	require.Error(t, err)

	fields := fieldsOf(err)
	assert.Contains(t, fields, "to")
	assert.Contains(t, fields, "document")
	assert.Contains(t, fields, "document_name")
}
