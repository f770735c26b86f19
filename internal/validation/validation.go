package validation

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	// Register custom validation functions
	if err := validate.RegisterValidation("displayname", validateDisplayName); err != nil {
		panic(fmt.Sprintf("failed to register displayname validation: %v", err))
	}
	if err := validate.RegisterValidation("bucketname", validateBucketName); err != nil {
		panic(fmt.Sprintf("failed to register bucketname validation: %v", err))
	}
	if err := validate.RegisterValidation("endpoint", validateEndpoint); err != nil {
		panic(fmt.Sprintf("failed to register endpoint validation: %v", err))
	}
}

// Validate validates a struct using tags
func Validate(s interface{}) error {
	return validate.Struct(s)
}

// ValidateDisplayName validates an uploader supplied file name
func ValidateDisplayName(name string) error {
	return validate.Var(name, "required,max=255,displayname")
}

// ValidateBucketName validates an object store bucket name separately
func ValidateBucketName(bucket string) error {
	return validate.Var(bucket, "required,bucketname")
}

// ValidateEndpoint validates an object store endpoint URL separately
func ValidateEndpoint(endpoint string) error {
	return validate.Var(endpoint, "required,endpoint")
}

// Custom validation functions

func validateDisplayName(fl validator.FieldLevel) bool {
	name := fl.Field().String()

	// Display names are stored and shown verbatim, so only reject what
	// cannot be stored or rendered:
	// - invalid UTF-8
	// - control characters, including NUL
	// - names made only of whitespace
	if !utf8.ValidString(name) {
		return false
	}
	if strings.TrimSpace(name) == "" {
		return false
	}

	for _, char := range name {
		if unicode.IsControl(char) {
			return false
		}
	}

	return true
}

func validateBucketName(fl validator.FieldLevel) bool {
	bucket := fl.Field().String()

	// Bucket requirements shared by S3 and GCS:
	// - Length between 3 and 63 characters
	// - Lowercase letters, numbers, dots and hyphens
	// - Must start and end with a letter or number
	if len(bucket) < 3 || len(bucket) > 63 {
		return false
	}

	isAlnum := func(c byte) bool {
		return (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
	}
	if !isAlnum(bucket[0]) || !isAlnum(bucket[len(bucket)-1]) {
		return false
	}

	for i := 0; i < len(bucket); i++ {
		c := bucket[i]
		if !isAlnum(c) && c != '.' && c != '-' {
			return false
		}
	}

	return true
}

func validateEndpoint(fl validator.FieldLevel) bool {
	endpoint := fl.Field().String()

	u, err := url.Parse(endpoint)
	if err != nil {
		return false
	}

	// Endpoint requirements:
	// - Must have a scheme (http or https)
	// - Must have a host
	// - No query or fragment
	return (u.Scheme == "http" || u.Scheme == "https") &&
		u.Host != "" &&
		u.RawQuery == "" &&
		u.Fragment == ""
}
