package core

import (
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_IsAdmin(t *testing.T) {
	conf := NewTestConfig()
	assert.True(t, conf.IsAdmin("admin@lichsu.vn"))
	assert.True(t, conf.IsAdmin(" BienTap@Lichsu.vn "))
	assert.False(t, conf.IsAdmin("someone@lichsu.vn"))
	assert.False(t, conf.IsAdmin(""))

	conf.AdminEmails = nil
	assert.False(t, conf.IsAdmin("admin@lichsu.vn"))
}

func TestNewTestConfig(t *testing.T) {
	conf := NewTestConfig()
	assert.True(t, conf.TestMode)
	assert.True(t, conf.Debug)
	assert.True(t, conf.Database.IsSQLite())
	assert.False(t, conf.Database.IsMemory())
	assert.Equal(t, "Lịch Sử", conf.DefaultFromEmail().Name)
}

func TestCleanString(t *testing.T) {
	assert.Equal(t, "Hà Nội", CleanString("  Hà Nội \n"))
	assert.Equal(t, "hà nội", CleanString(" HÀ NỘI ", true))
	// "ệ" typed as e + combining circumflex + combining dot below
	assert.Equal(t, "Việt", NormalizeText("Việt"))
}

func TestValidationError(t *testing.T) {
	cause := errors.New("a stage with this id already exists")
	err := NewValidationError(cause, FieldError{Field: "id", Error: cause.Error()})
	assert.Equal(t, cause.Error(), err.Error())
	assert.True(t, errors.Is(err, cause))

	err = NewValidationError(nil, FieldError{Field: "threshold", Error: "must be a number in (0, 1]"})
	assert.Equal(t, "threshold: must be a number in (0, 1]", err.Error())

	var verr *ValidationError
	require.True(t, errors.As(errors.Wrap(err, "reporting"), &verr))
	assert.Len(t, verr.Fields, 1)
}

func TestShutdownError(t *testing.T) {
	err := errors.Wrap(NewShutdownError("integrity issue"), "serving")
	assert.True(t, IsShutdown(err))
	assert.False(t, IsShutdown(errors.New("integrity issue")))
}

func TestEmailMessage_Render(t *testing.T) {
	conf := NewTestConfig()
	conf.FrontendBaseURL = "https://lichsu.vn"
	type orphan struct {
		ID, StageID, Year, Title, Category string
	}
	msg := &EmailMessage{
		TemplateName: "orphans",
		TemplateData: []orphan{{ID: "x-orphan", StageID: "stage-1930-1945", Year: "1930", Title: "Sự kiện mồ côi", Category: "world"}},
	}
	require.NoError(t, msg.Render(conf))
	assert.True(t, msg.HasContent())
	assert.False(t, msg.HasRecipients())
	assert.Contains(t, msg.TextContent, "1 supplementary event(s)")
	assert.Contains(t, msg.TextContent, "- [stage-1930-1945] 1930 Sự kiện mồ côi (id: x-orphan, world)")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(msg.TextContent), conf.FrontendBaseURL))
	assert.Contains(t, msg.HTMLContent, "x-orphan")

	msg = &EmailMessage{BodyStr: "plain"}
	require.NoError(t, msg.Render(conf))
	assert.Equal(t, "plain", msg.TextContent)
	assert.Empty(t, msg.HTMLContent)

	msg = &EmailMessage{TemplateName: "nope"}
	assert.Error(t, msg.Render(conf))
}
