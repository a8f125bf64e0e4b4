// Package settings implements per-conversation bot configuration: the closed
// set of keys with their built-in defaults, value coercion from stored
// strings, the four-tier resolver and the validated scope-level writer.
package settings

import "strings"

// Key identifies one bot setting. The set of keys is fixed; see Keys.
type Key string

// Known keys.
const (
	KeyAccessToken     Key = "LINE_CHANNEL_ACCESS_TOKEN"
	KeySaveImage       Key = "SAVE_IMAGE"
	KeySaveVideo       Key = "SAVE_VIDEO"
	KeySaveAudio       Key = "SAVE_AUDIO"
	KeySaveFile        Key = "SAVE_FILE"
	KeyAllowGetLink    Key = "ALLOW_GET_LINK"
	KeyAllowOverwrite  Key = "ALLOW_OVERWRITE"
	KeyCommandGetLink  Key = "COMMAND_GET_LINK"
	KeyCommandGroupID  Key = "COMMAND_GET_GROUP_ID"
	KeyCommandUserID   Key = "COMMAND_GET_USER_ID"
	KeyCommandConfig   Key = "COMMAND_GET_CONFIG"
	KeyCommandSet      Key = "COMMAND_SET_CONFIG"
	KeyFileNameFormat  Key = "FILE_NAME_FORMAT"
	KeyImageNameFormat Key = "IMAGE_NAME_FORMAT"
	KeyVideoNameFormat Key = "VIDEO_NAME_FORMAT"
	KeyAudioNameFormat Key = "AUDIO_NAME_FORMAT"
)

type keySpec struct {
	def    Value
	secret bool // never listed, never settable from chat
}

const mediaNameFormat = "${timestamp}.${extension}"

// keyOrder is the canonical listing order.
var keyOrder = []Key{
	KeyAccessToken,
	KeySaveImage,
	KeySaveVideo,
	KeySaveAudio,
	KeySaveFile,
	KeyAllowGetLink,
	KeyAllowOverwrite,
	KeyCommandGetLink,
	KeyCommandGroupID,
	KeyCommandUserID,
	KeyCommandConfig,
	KeyCommandSet,
	KeyFileNameFormat,
	KeyImageNameFormat,
	KeyVideoNameFormat,
	KeyAudioNameFormat,
}

var keyTable = map[Key]keySpec{
	KeyAccessToken:     {def: Null(), secret: true},
	KeySaveImage:       {def: Bool(true)},
	KeySaveVideo:       {def: Bool(true)},
	KeySaveAudio:       {def: Bool(true)},
	KeySaveFile:        {def: Bool(true)},
	KeyAllowGetLink:    {def: Bool(true)},
	KeyAllowOverwrite:  {def: Bool(true)},
	KeyCommandGetLink:  {def: String("!link")},
	KeyCommandGroupID:  {def: String("!group")},
	KeyCommandUserID:   {def: String("!user")},
	KeyCommandConfig:   {def: String("!config")},
	KeyCommandSet:      {def: String("!set")},
	KeyFileNameFormat:  {def: String("${timestamp}_${fileName}")},
	KeyImageNameFormat: {def: String(mediaNameFormat)},
	KeyVideoNameFormat: {def: String(mediaNameFormat)},
	KeyAudioNameFormat: {def: String(mediaNameFormat)},
}

// Keys returns every known key in canonical order.
func Keys() []Key {
	out := make([]Key, len(keyOrder))
	copy(out, keyOrder)
	return out
}

// ParseKey maps user input to a known key. Matching is exact after trimming
// surrounding whitespace.
func ParseKey(s string) (Key, bool) {
	k := Key(strings.TrimSpace(s))
	_, ok := keyTable[k]
	return k, ok
}

// Valid reports whether k is one of the known keys.
func (k Key) Valid() bool {
	_, ok := keyTable[k]
	return ok
}

// Default returns the built-in default for k, or Null for unknown keys.
func (k Key) Default() Value {
	return keyTable[k].def
}

// Secret reports whether k holds a credential.
func (k Key) Secret() bool {
	return keyTable[k].secret
}

func (k Key) String() string { return string(k) }
