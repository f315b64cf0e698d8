package crypto

import (
	"encoding/json"

	"github.com/engramhq/engram/internal/analyzer"
	"github.com/engramhq/engram/internal/engramerr"
	"github.com/engramhq/engram/internal/models"
)

// EncryptEpisode replaces ep.Text with a serialized envelope and, if
// ep.Tags is non-empty, collapses the tag list into a single encrypted
// envelope element. Non-secret fields (id, type, importance, timestamps,
// supersedes/supersededBy, metadata, chunkIndex) stay in cleartext by
// design so the index and supersession graph remain usable without the
// key; implementers consuming this must carry that leak into their own
// threat model. ep.Tokens is cleared rather than left cleartext: the
// token list otherwise leaks the plaintext's vocabulary unencrypted
// alongside a sealed body, so callers must recompute it from the
// decrypted text after DecryptEpisode instead of trusting the stored
// field.
func EncryptEpisode(ep *models.Episode, key [32]byte) error {
	textEnv, err := Seal([]byte(ep.Text), key)
	if err != nil {
		return err
	}
	textJSON, err := textEnv.Marshal()
	if err != nil {
		return err
	}
	ep.Text = textJSON
	ep.Encrypted = true
	ep.Tokens = nil

	if len(ep.Tags) > 0 {
		tagsJSON, err := json.Marshal(ep.Tags)
		if err != nil {
			return err
		}
		tagsEnv, err := Seal(tagsJSON, key)
		if err != nil {
			return err
		}
		tagsEnvJSON, err := tagsEnv.Marshal()
		if err != nil {
			return err
		}
		ep.Tags = []string{tagsEnvJSON}
		ep.TagsEncrypted = true
	}
	return nil
}

// DecryptEpisode reverses EncryptEpisode in place, detecting the
// _encrypted/_tagsEncrypted sidebands. Tokens are recomputed from the
// decrypted text rather than trusted from storage, since EncryptEpisode
// never persists them.
func DecryptEpisode(ep *models.Episode, key [32]byte) error {
	if ep.Encrypted {
		env, err := UnmarshalEnvelope(ep.Text)
		if err != nil {
			return err
		}
		plaintext, err := Open(env, key)
		if err != nil {
			return err
		}
		ep.Text = string(plaintext)
		ep.Encrypted = false
		ep.Tokens = analyzer.Tokenize(ep.Text)
	}

	if ep.TagsEncrypted {
		if len(ep.Tags) != 1 {
			return engramerr.Wrap(engramerr.ErrMalformed, "encrypted tags must hold exactly one envelope element")
		}
		env, err := UnmarshalEnvelope(ep.Tags[0])
		if err != nil {
			return err
		}
		plaintext, err := Open(env, key)
		if err != nil {
			return err
		}
		var tags []string
		if err := json.Unmarshal(plaintext, &tags); err != nil {
			return engramerr.Wrapf(engramerr.ErrMalformed, "decrypted tags: %v", err)
		}
		ep.Tags = tags
		ep.TagsEncrypted = false
	}
	return nil
}
