package site

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const legacyDoc = `{
	"schoolName": "Legacy School",
	"contactInfo": {"address": "Old Address", "email": "old@school.test", "phone": "+91 98765 00000"},
	"adminRequests": [
		{"id": "r1", "firstName": "ANU", "lastName": "RAO", "email": "anu@school.test", "password": "Secret#123", "status": "pending"},
		{"id": "r2", "firstName": "RAVI", "lastName": "K", "email": "ravi@school.test", "passwordHash": "$2a$10$existing", "status": "approved"}
	]
}`

func TestDecodeSnapshot_MigratesV0(t *testing.T) {
	patch, err := DecodeSnapshot([]byte(legacyDoc))
	require.NoError(t, err)

	require.NotNil(t, patch.SchemaVersion)
	assert.Equal(t, SchemaVersion, *patch.SchemaVersion)

	require.NotNil(t, patch.ContactInfo)
	assert.Equal(t, []string{"+91 98765 00000"}, patch.ContactInfo.PhoneNumbers)

	require.NotNil(t, patch.AdminRequests)
	reqs := *patch.AdminRequests
	require.Len(t, reqs, 2)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(reqs[0].PasswordHash), []byte("Secret#123")))
	assert.Equal(t, "$2a$10$existing", reqs[1].PasswordHash)

	assert.Nil(t, patch.Notices, "absent fields stay unset")
}

func TestDecodeSnapshot_NoPlaintextAfterHydrate(t *testing.T) {
	storage := newMemStorage()
	storage.data[DefaultStorageKey] = []byte(legacyDoc)

	store, _ := newTestStore(t, storage)
	store.Hydrate(context.Background())

	assert.Equal(t, "Legacy School", store.State().Data.SchoolName)
	assert.Equal(t, "+91 98765 00000", store.State().Data.ContactInfo.Phone)
	assert.NotContains(t, string(storage.data[DefaultStorageKey]), "Secret#123")
	assert.NotContains(t, string(storage.data[DefaultStorageKey]), `"password"`)
}

func TestDecodeSnapshot_CurrentVersionUntouched(t *testing.T) {
	hashPasswordFunc = func(string) ([]byte, error) {
		t.Fatal("no migration should run")
		return nil, nil
	}
	defer func() {
		hashPasswordFunc = func(password string) ([]byte, error) {
			return bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		}
	}()

	tests := []struct {
		name string
		doc  string
	}{
		{name: "current", doc: `{"schemaVersion": 1, "adminRequests": [{"id": "r", "password": "x"}]}`},
		{name: "newer", doc: `{"schemaVersion": 7, "adminRequests": [{"id": "r", "password": "x"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			patch, err := DecodeSnapshot([]byte(tt.doc))
			require.NoError(t, err)
			require.NotNil(t, patch.AdminRequests)
			assert.Empty(t, (*patch.AdminRequests)[0].PasswordHash)
		})
	}
}

func TestDecodeSnapshot_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "not json", doc: "<html>"},
		{name: "array", doc: "[]"},
		{name: "null", doc: "null"},
		{name: "bad version", doc: `{"schemaVersion": "one"}`},
		{name: "bad admin requests", doc: `{"adminRequests": {"id": "r"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeSnapshot([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}
