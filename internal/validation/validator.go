package validation

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// albumSlug matches a bare album id: one path segment without whitespace.
var albumSlug = regexp.MustCompile(`^[^/\s?#]+$`)

// Validator checks request payloads. URL rules only accept pages of the configured site.
type Validator struct {
	validate *validator.Validate
	siteHost string
}

// New creates a Validator bound to siteHost. Subdomains of siteHost are accepted too.
func New(siteHost string) *Validator {
	v := &Validator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
		siteHost: strings.ToLower(strings.TrimSpace(siteHost)),
	}
	_ = v.validate.RegisterValidation("album_ref", v.validateAlbumRef)
	_ = v.validate.RegisterValidation("track_page", v.validateTrackPage)
	return v
}

// Struct validates a tagged struct.
func (v *Validator) Struct(s any) error {
	return v.validate.Struct(s)
}

// TrackPage checks that raw is a track page URL on the site.
func (v *Validator) TrackPage(raw string) error {
	if err := v.validate.Var(raw, "required,track_page"); err != nil {
		return fmt.Errorf("invalid track page URL %q: %w", raw, err)
	}
	return nil
}

func (v *Validator) validateAlbumRef(fl validator.FieldLevel) bool {
	ref := strings.TrimSpace(fl.Field().String())
	if strings.HasPrefix(strings.ToLower(ref), "http") {
		u, ok := v.siteURL(ref)
		return ok && strings.Contains(u.Path, "/album/")
	}
	return ref != "." && ref != ".." && albumSlug.MatchString(ref)
}

func (v *Validator) validateTrackPage(fl validator.FieldLevel) bool {
	_, ok := v.siteURL(fl.Field().String())
	return ok
}

// siteURL parses raw and accepts only http(s) URLs on the site host.
func (v *Validator) siteURL(raw string) (*url.URL, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, false
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, false
	}

	host := strings.ToLower(u.Hostname())
	if host == "" || v.siteHost == "" {
		return nil, false
	}

	if host != v.siteHost && !strings.HasSuffix(host, "."+v.siteHost) {
		return nil, false
	}
	return u, true
}

// Message turns a validation error into a short client-facing message.
func Message(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}

	fe := verrs[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "max":
		return fmt.Sprintf("%s is too long", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "album_ref":
		return fmt.Sprintf("%s must be an album id or album page URL", field)
	case "track_page":
		return fmt.Sprintf("%s must be a track page URL on the site", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
