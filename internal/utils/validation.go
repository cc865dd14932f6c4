package utils

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors represents multiple validation errors
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	var messages []string
	for _, err := range ve {
		messages = append(messages, fmt.Sprintf("%s: %s", err.Field, err.Message))
	}
	return strings.Join(messages, ", ")
}

// ValidateStruct validates a struct using reflection and struct tags
func ValidateStruct(s interface{}) error {
	var errors ValidationErrors

	v := reflect.ValueOf(s)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		return fmt.Errorf("expected struct, got %s", v.Kind())
	}

	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		// Skip unexported fields
		if !field.CanInterface() {
			continue
		}

		// Get validation tag
		validateTag := fieldType.Tag.Get("validate")
		if validateTag == "" {
			continue
		}

		// Parse validation rules
		rules := strings.Split(validateTag, ",")
		for _, rule := range rules {
			rule = strings.TrimSpace(rule)
			if err := validateField(fieldType.Name, field, rule); err != nil {
				errors = append(errors, *err)
			}
		}
	}

	if len(errors) > 0 {
		return errors
	}

	return nil
}

// validateField validates a single field against a rule
func validateField(fieldName string, field reflect.Value, rule string) *ValidationError {
	parts := strings.Split(rule, "=")
	ruleName := parts[0]
	var ruleValue string
	if len(parts) > 1 {
		ruleValue = parts[1]
	}

	switch ruleName {
	case "required":
		if isEmpty(field) {
			return &ValidationError{
				Field:   fieldName,
				Message: "is required",
			}
		}
	case "email":
		if field.Kind() == reflect.String {
			email := field.String()
			if email != "" && !IsValidEmail(email) {
				return &ValidationError{
					Field:   fieldName,
					Message: "must be a valid email address",
				}
			}
		}
	case "min":
		if field.Kind() == reflect.String {
			if len(field.String()) < parseIntOrDefault(ruleValue, 0) {
				return &ValidationError{
					Field:   fieldName,
					Message: fmt.Sprintf("must be at least %s characters", ruleValue),
				}
			}
		} else if isNumeric(field) {
			if getNumericValue(field) < float64(parseIntOrDefault(ruleValue, 0)) {
				return &ValidationError{
					Field:   fieldName,
					Message: fmt.Sprintf("must be at least %s", ruleValue),
				}
			}
		}
	case "max":
		if field.Kind() == reflect.String {
			if len(field.String()) > parseIntOrDefault(ruleValue, 0) {
				return &ValidationError{
					Field:   fieldName,
					Message: fmt.Sprintf("must be at most %s characters", ruleValue),
				}
			}
		} else if isNumeric(field) {
			if getNumericValue(field) > float64(parseIntOrDefault(ruleValue, 0)) {
				return &ValidationError{
					Field:   fieldName,
					Message: fmt.Sprintf("must be at most %s", ruleValue),
				}
			}
		}
	case "gt":
		if isNumeric(field) {
			if getNumericValue(field) <= float64(parseIntOrDefault(ruleValue, 0)) {
				return &ValidationError{
					Field:   fieldName,
					Message: fmt.Sprintf("must be greater than %s", ruleValue),
				}
			}
		}
	case "gte":
		if isNumeric(field) {
			if getNumericValue(field) < float64(parseIntOrDefault(ruleValue, 0)) {
				return &ValidationError{
					Field:   fieldName,
					Message: fmt.Sprintf("must be greater than or equal to %s", ruleValue),
				}
			}
		}
	case "lt":
		if isNumeric(field) {
			if getNumericValue(field) >= float64(parseIntOrDefault(ruleValue, 0)) {
				return &ValidationError{
					Field:   fieldName,
					Message: fmt.Sprintf("must be less than %s", ruleValue),
				}
			}
		}
	case "lte":
		if isNumeric(field) {
			if getNumericValue(field) > float64(parseIntOrDefault(ruleValue, 0)) {
				return &ValidationError{
					Field:   fieldName,
					Message: fmt.Sprintf("must be less than or equal to %s", ruleValue),
				}
			}
		}
	case "alphanumeric":
		if field.Kind() == reflect.String {
			str := field.String()
			if str != "" && !regexp.MustCompile(`^[a-zA-Z0-9]+$`).MatchString(str) {
				return &ValidationError{
					Field:   fieldName,
					Message: "must contain only letters and numbers",
				}
			}
		}
	case "alpha":
		if field.Kind() == reflect.String {
			str := field.String()
			if str != "" && !regexp.MustCompile(`^[a-zA-Z\s]+$`).MatchString(str) {
				return &ValidationError{
					Field:   fieldName,
					Message: "must contain only letters and spaces",
				}
			}
		}
	case "numeric":
		if field.Kind() == reflect.String {
			str := field.String()
			if str != "" && !regexp.MustCompile(`^[0-9]+$`).MatchString(str) {
				return &ValidationError{
					Field:   fieldName,
					Message: "must contain only numbers",
				}
			}
		}
	case "no_sql_injection":
		if field.Kind() == reflect.String {
			str := strings.ToLower(field.String())
			dangerous := []string{
				"'", "\"", ";", "--", "/*", "*/", "xp_", "sp_", "exec", "execute",
				"select", "insert", "update", "delete", "drop", "create", "alter",
				"union", "script", "javascript", "vbscript", "onload", "onerror",
				"<script", "</script", "eval(", "expression(", "url(", "import(",
				"truncate", "grant", "revoke", "declare", "cast", "convert",
			}
			for _, pattern := range dangerous {
				if strings.Contains(str, pattern) {
					return &ValidationError{
						Field:   fieldName,
						Message: "contains potentially dangerous characters",
					}
				}
			}
		}
	case "no_xss":
		if field.Kind() == reflect.String {
			str := strings.ToLower(field.String())
			xssPatterns := []string{
				"<script", "</script", "javascript:", "vbscript:", "onload=", "onerror=",
				"onclick=", "onmouseover=", "onfocus=", "onblur=", "onchange=", "onsubmit=",
				"<iframe", "<object", "<embed", "<link", "<meta", "data:text/html",
				"eval(", "expression(", "url(javascript:", "&#", "&#x", "<svg",
				"<img", "onerror", "onmouseover", "onfocus", "onblur", "onchange",
			}
			for _, pattern := range xssPatterns {
				if strings.Contains(str, pattern) {
					return &ValidationError{
						Field:   fieldName,
						Message: "contains potentially malicious content",
					}
				}
			}
		}
	case "safe_text":
		if field.Kind() == reflect.String {
			str := field.String()
			// Allow letters, numbers, spaces, and safe punctuation
			if str != "" && !regexp.MustCompile(`^[a-zA-Z0-9\s\.\,\!\?\-\_\(\)]+$`).MatchString(str) {
				return &ValidationError{
					Field:   fieldName,
					Message: "contains invalid characters",
				}
			}
		}
	case "url_safe":
		if field.Kind() == reflect.String {
			str := field.String()
			if str != "" && !regexp.MustCompile(`^[a-zA-Z0-9\-\_\.\/\:]+$`).MatchString(str) {
				return &ValidationError{
					Field:   fieldName,
					Message: "must be URL safe",
				}
			}
		}
	}

	return nil
}

// isEmpty checks if a field is empty
func isEmpty(field reflect.Value) bool {
	switch field.Kind() {
	case reflect.String:
		return field.String() == ""
	case reflect.Slice, reflect.Map, reflect.Array:
		return field.Len() == 0
	case reflect.Ptr, reflect.Interface:
		return field.IsNil()
	case reflect.Invalid:
		return true
	default:
		return false
	}
}

// isNumeric checks if a field is numeric
func isNumeric(field reflect.Value) bool {
	switch field.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	case reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

// getNumericValue gets the numeric value as float64
func getNumericValue(field reflect.Value) float64 {
	switch field.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(field.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(field.Uint())
	case reflect.Float32, reflect.Float64:
		return field.Float()
	default:
		return 0
	}
}

// parseIntOrDefault parses an integer or returns default value
func parseIntOrDefault(s string, defaultValue int) int {
	if s == "" {
		return defaultValue
	}

	var result int
	fmt.Sscanf(s, "%d", &result)
	return result
}

// IsValidEmail validates email format
func IsValidEmail(email string) bool {
	emailRegex := regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	return emailRegex.MatchString(email)
}

// NormalizeEmail normalizes an email address for consistent comparison
func NormalizeEmail(email string) string {
	// Trim whitespace and convert to lowercase
	normalized := strings.ToLower(strings.TrimSpace(email))
	return normalized
}

// SanitizeString removes potentially harmful characters from strings
func SanitizeString(input string) string {
	// Remove null bytes and control characters
	sanitized := regexp.MustCompile(`[\x00-\x1f\x7f]`).ReplaceAllString(input, "")

	// Remove potential XSS patterns
	sanitized = regexp.MustCompile(`<[^>]*>`).ReplaceAllString(sanitized, "")

	// Remove SQL injection patterns
	dangerous := []string{
		"'", "\"", ";", "--", "/*", "*/", "xp_", "sp_", "exec", "execute",
		"<script", "</script", "javascript:", "vbscript:", "onload=", "onerror=",
		"eval(", "expression(", "url(", "import(",
	}

	for _, pattern := range dangerous {
		sanitized = strings.ReplaceAll(sanitized, pattern, "")
		sanitized = strings.ReplaceAll(sanitized, strings.ToUpper(pattern), "")
	}

	// Trim whitespace
	sanitized = strings.TrimSpace(sanitized)

	return sanitized
}
