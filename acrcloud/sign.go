// Package acrcloud identifies short audio samples with the ACRCloud
// identification protocol (signature version 1).
package acrcloud

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"strings"
)

const (
	DataType         = "audio"
	SignatureVersion = "1"

	IdentifyPath = "/v1/identify"
)

// StringToSign builds the canonical request description: method, path,
// access key, data type, signature version and timestamp, one per line.
func StringToSign(method, path, accessKey, timestamp string) string {
	return strings.Join([]string{
		method,
		path,
		accessKey,
		DataType,
		SignatureVersion,
		timestamp,
	}, "\n")
}

// Sign returns the base64 HMAC-SHA1 of stringToSign keyed by secret.
func Sign(stringToSign, secret string) string {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write([]byte(stringToSign))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
