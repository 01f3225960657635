package site

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

type (
	rawDoc map[string]json.RawMessage

	// migration upgrades a raw document from version `to - 1` to `to`.
	migration struct {
		to    int
		apply func(doc rawDoc) error
	}
)

var (
	migrations = []migration{
		{to: 1, apply: migrateV1},
	}

	hashPasswordFunc = func(password string) ([]byte, error) {
		return bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	}
)

// DecodeSnapshot parses a persisted document, upgrades it to SchemaVersion and returns it as a patch:
// only the fields present in the document are set.
// Documents written by a newer version are loaded without migration.
func DecodeSnapshot(raw []byte) (SiteContentPatch, error) {
	var patch SiteContentPatch

	var doc rawDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return patch, errors.Wrap(err, "decoding snapshot")
	}
	if doc == nil {
		return patch, errors.New("decoding snapshot: document is null")
	}

	version, err := docVersion(doc)
	if err != nil {
		return patch, err
	}

	for _, m := range migrations {
		if version >= m.to {
			continue
		}
		if err := m.apply(doc); err != nil {
			return patch, errors.Wrap(err, fmt.Sprintf("migrating snapshot to v%d", m.to))
		}
		if doc["schemaVersion"], err = json.Marshal(m.to); err != nil {
			return patch, errors.Wrap(err, "encoding schema version")
		}
		version = m.to
	}

	migrated, err := json.Marshal(doc)
	if err != nil {
		return patch, errors.Wrap(err, "encoding migrated snapshot")
	}
	if err := json.Unmarshal(migrated, &patch); err != nil {
		return patch, errors.Wrap(err, "decoding migrated snapshot")
	}
	return patch, nil
}

// EncodeSnapshot serializes a document for storage.
func EncodeSnapshot(sc SiteContent) ([]byte, error) {
	if sc.SchemaVersion == 0 {
		sc.SchemaVersion = SchemaVersion
	}
	data, err := json.Marshal(sc)
	if err != nil {
		return nil, errors.Wrap(err, "encoding snapshot")
	}
	return data, nil
}

func docVersion(doc rawDoc) (int, error) {
	raw, ok := doc["schemaVersion"]
	if !ok || string(raw) == "null" {
		return 0, nil
	}
	var version int
	if err := json.Unmarshal(raw, &version); err != nil {
		return 0, errors.Wrap(err, "decoding schema version")
	}
	return version, nil
}

// migrateV1 hashes the plaintext passwords of admin requests
// and derives contactInfo.phoneNumbers from the single phone field.
func migrateV1(doc rawDoc) error {
	if raw, ok := doc["adminRequests"]; ok && string(raw) != "null" {
		var reqs []map[string]json.RawMessage
		if err := json.Unmarshal(raw, &reqs); err != nil {
			return errors.Wrap(err, "decoding admin requests")
		}
		for _, req := range reqs {
			pwdRaw, ok := req["password"]
			if !ok {
				continue
			}
			delete(req, "password")
			if _, hashed := req["passwordHash"]; hashed {
				continue
			}
			var password string
			if err := json.Unmarshal(pwdRaw, &password); err != nil || password == "" {
				continue
			}
			hash, err := hashPasswordFunc(password)
			if err != nil {
				return errors.Wrap(err, "hashing admin request password")
			}
			if req["passwordHash"], err = json.Marshal(string(hash)); err != nil {
				return errors.Wrap(err, "encoding password hash")
			}
		}
		var err error
		if doc["adminRequests"], err = json.Marshal(reqs); err != nil {
			return errors.Wrap(err, "encoding admin requests")
		}
	}

	if raw, ok := doc["contactInfo"]; ok && string(raw) != "null" {
		var ci map[string]json.RawMessage
		if err := json.Unmarshal(raw, &ci); err != nil {
			return errors.Wrap(err, "decoding contact info")
		}
		if phones, ok := ci["phoneNumbers"]; !ok || string(phones) == "null" {
			var phone string
			if pRaw, ok := ci["phone"]; ok {
				_ = json.Unmarshal(pRaw, &phone)
			}
			numbers := []string{}
			if phone != "" {
				numbers = append(numbers, phone)
			}
			var err error
			if ci["phoneNumbers"], err = json.Marshal(numbers); err != nil {
				return errors.Wrap(err, "encoding phone numbers")
			}
			if doc["contactInfo"], err = json.Marshal(ci); err != nil {
				return errors.Wrap(err, "encoding contact info")
			}
		}
	}
	return nil
}
