package auth

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1" //nolint:gosec // HMAC-SHA1 is mandated by RFC 5849
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"mime"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fivetwenty-io/discovery-client/internal/constants"
	"github.com/fivetwenty-io/discovery-client/pkg/discovery"
)

// ErrConsumerKeyRequired is returned when signing without a consumer key.
var ErrConsumerKeyRequired = errors.New("OAuth1 consumer key is required")

const formContentType = "application/x-www-form-urlencoded"

// OAuth1 signs requests with RFC 5849 HMAC-SHA1.
type OAuth1 struct {
	credentials discovery.OAuth1Credentials

	// Now and Nonce are replaced in tests.
	Now   func() time.Time
	Nonce func() (string, error)
}

// NewOAuth1 creates an OAuth1 strategy.
func NewOAuth1(credentials discovery.OAuth1Credentials) *OAuth1 {
	return &OAuth1{
		credentials: credentials,
		Now:         time.Now,
		Nonce:       randomNonce,
	}
}

func randomNonce() (string, error) {
	buf := make([]byte, constants.NonceBytes)

	_, err := rand.Read(buf)
	if err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	return hex.EncodeToString(buf), nil
}

// Sign returns a copy of req with an "Authorization: OAuth ..." header.
func (a *OAuth1) Sign(ctx context.Context, req *discovery.Request) (*discovery.Request, error) {
	if a.credentials.ConsumerKey == "" {
		return nil, ErrConsumerKeyRequired
	}

	nonce, err := a.Nonce()
	if err != nil {
		return nil, err
	}

	oauthParams := map[string]string{
		"oauth_consumer_key":     a.credentials.ConsumerKey,
		"oauth_nonce":            nonce,
		"oauth_signature_method": constants.OAuth1SignatureMethod,
		"oauth_timestamp":        strconv.FormatInt(a.Now().Unix(), 10),
		"oauth_version":          constants.OAuth1Version,
	}

	if a.credentials.Token != "" {
		oauthParams["oauth_token"] = a.credentials.Token
	}

	isForm := isFormBody(req)
	if len(req.Body) > 0 && !isForm {
		sum := sha1.Sum(req.Body) //nolint:gosec // RFC 5849 body hash
		oauthParams["oauth_body_hash"] = base64.StdEncoding.EncodeToString(sum[:])
	}

	baseString, err := signatureBaseString(req, oauthParams, isForm)
	if err != nil {
		return nil, err
	}

	oauthParams["oauth_signature"] = a.signature(baseString)

	signed := req.Clone()
	signed.Headers.Set("Authorization", authorizationHeader(a.credentials.Realm, oauthParams))

	return signed, nil
}

func (a *OAuth1) signature(baseString string) string {
	key := discovery.EscapeRFC3986(a.credentials.ConsumerSecret) + "&" + discovery.EscapeRFC3986(a.credentials.TokenSecret)
	mac := hmac.New(sha1.New, []byte(key))
	_, _ = mac.Write([]byte(baseString))

	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func isFormBody(req *discovery.Request) bool {
	if req.Headers == nil {
		return false
	}

	mediaType, _, err := mime.ParseMediaType(req.Headers.Get("Content-Type"))

	return err == nil && mediaType == formContentType
}

type param struct {
	key, value string
}

// signatureBaseString builds METHOD&base-uri&normalized-params.
func signatureBaseString(req *discovery.Request, oauthParams map[string]string, isForm bool) (string, error) {
	parsed, err := url.Parse(req.URI)
	if err != nil {
		return "", fmt.Errorf("failed to parse request URI: %w", err)
	}

	var params []param

	query, err := url.ParseQuery(parsed.RawQuery)
	if err != nil {
		return "", fmt.Errorf("failed to parse request query: %w", err)
	}

	params = appendValues(params, query)

	if isForm && len(req.Body) > 0 {
		form, err := url.ParseQuery(string(req.Body))
		if err != nil {
			return "", fmt.Errorf("failed to parse form body: %w", err)
		}

		params = appendValues(params, form)
	}

	for key, value := range oauthParams {
		params = append(params, param{key: discovery.EscapeRFC3986(key), value: discovery.EscapeRFC3986(value)})
	}

	sort.Slice(params, func(i, j int) bool {
		if params[i].key != params[j].key {
			return params[i].key < params[j].key
		}

		return params[i].value < params[j].value
	})

	pairs := make([]string, 0, len(params))
	for _, p := range params {
		pairs = append(pairs, p.key+"="+p.value)
	}

	return strings.ToUpper(req.HTTPMethod) + "&" +
		discovery.EscapeRFC3986(baseURI(parsed)) + "&" +
		discovery.EscapeRFC3986(strings.Join(pairs, "&")), nil
}

func appendValues(params []param, values url.Values) []param {
	for key, vals := range values {
		for _, value := range vals {
			params = append(params, param{key: discovery.EscapeRFC3986(key), value: discovery.EscapeRFC3986(value)})
		}
	}

	return params
}

// baseURI lowercases scheme and host and drops default ports and the query.
func baseURI(u *url.URL) string {
	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())

	if port := u.Port(); port != "" && !(scheme == "http" && port == "80") && !(scheme == "https" && port == "443") {
		host += ":" + port
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}

	return scheme + "://" + host + path
}

func authorizationHeader(realm string, oauthParams map[string]string) string {
	keys := make([]string, 0, len(oauthParams))
	for key := range oauthParams {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	parts := make([]string, 0, len(keys)+1)
	if realm != "" {
		parts = append(parts, `realm="`+discovery.EscapeRFC3986(realm)+`"`)
	}

	for _, key := range keys {
		parts = append(parts, key+`="`+discovery.EscapeRFC3986(oauthParams[key])+`"`)
	}

	return "OAuth " + strings.Join(parts, ", ")
}
