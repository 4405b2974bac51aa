package settings

import (
	"context"
	"testing"

	"github.com/bdu-chat/campus-chat/internal/database/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetentionPolicy(t *testing.T) {
	db := dbtest.Open(t)
	r := NewReader(db)
	ctx := context.Background()

	p, err := r.RetentionPolicy(ctx)
	require.NoError(t, err)
	assert.Equal(t, RetentionPolicy{}, p)

	dbtest.SetSetting(t, db, KeyGroupExpiryMinutes, "15")
	dbtest.SetSetting(t, db, KeyPrivateExpiryMinutes, " 60 ")

	p, err = r.RetentionPolicy(ctx)
	require.NoError(t, err)
	assert.Equal(t, RetentionPolicy{GroupExpiry: 15, PrivateExpiry: 60}, p)

	// Every read sees the current value
	dbtest.SetSetting(t, db, KeyGroupExpiryMinutes, "abc")
	dbtest.SetSetting(t, db, KeyPrivateExpiryMinutes, "-3")

	p, err = r.RetentionPolicy(ctx)
	require.NoError(t, err)
	assert.Equal(t, RetentionPolicy{}, p)
}

func TestBannedWords(t *testing.T) {
	db := dbtest.Open(t)
	r := NewReader(db)
	ctx := context.Background()

	words, err := r.BannedWords(ctx)
	require.NoError(t, err)
	assert.Empty(t, words)

	dbtest.SetSetting(t, db, KeyFilterWords, "test, pis söz ,")
	words, err = r.BannedWords(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"test", "pis söz"}, words)
}

func TestValue(t *testing.T) {
	db := dbtest.Open(t)
	r := NewReader(db)

	v, err := r.Value(context.Background(), KeyRules)
	require.NoError(t, err)
	assert.Equal(t, "", v)

	dbtest.SetSetting(t, db, KeyRules, "Be kind")
	v, err = r.Value(context.Background(), KeyRules)
	require.NoError(t, err)
	assert.Equal(t, "Be kind", v)
}
