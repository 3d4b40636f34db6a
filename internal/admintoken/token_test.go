package admintoken

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "veristay/pkg/domain"
	dErrors "veristay/pkg/domain-errors"
)

var tokens = NewService([]byte("test-signing-key"))

func Test_IssueAndParse(t *testing.T) {
	admin := id.AdminID(uuid.New())

	token, err := tokens.Issue(admin, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	parsed, err := tokens.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, admin, parsed)
}

func Test_Parse_Garbage(t *testing.T) {
	_, err := tokens.Parse("not-a-jwt")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_Parse_Expired(t *testing.T) {
	admin := id.AdminID(uuid.New())

	token, err := tokens.Issue(admin, -time.Hour)
	require.NoError(t, err)

	_, err = tokens.Parse(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	assert.Contains(t, err.Error(), "expired")
}

func Test_Parse_WrongKey(t *testing.T) {
	admin := id.AdminID(uuid.New())

	other := NewService([]byte("a-different-key"))
	token, err := other.Issue(admin, time.Hour)
	require.NoError(t, err)

	_, err = tokens.Parse(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}
