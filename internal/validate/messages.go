package validate

import (
	"reflect"

	"github.com/go-playground/validator/v10"
)

// formMessages holds the form-specific wording, keyed by
// "<Struct>.<field>.<tag>".
var formMessages = map[string]string{
	"Credentials.email.required":    "Email is required",
	"Credentials.email.email_loose": "Email format is invalid",
	"Credentials.password.required": "Password is required",
	"Credentials.password.min":      "Password must be at least 6 characters",

	"SignupRequest.name.required":            "Name is required",
	"SignupRequest.name.min":                 "Name must be at least 2 characters",
	"SignupRequest.email.required":           "Email is required",
	"SignupRequest.email.email_loose":        "Email format is invalid",
	"SignupRequest.phone.phone":              "Phone format is invalid (e.g., +380501234567)",
	"SignupRequest.password.required":        "Password is required",
	"SignupRequest.password.min":             "Password must be at least 6 characters",
	"SignupRequest.confirmPassword.required": "Please confirm your password",
	"SignupRequest.confirmPassword.eqfield":  "Passwords do not match",

	"ProfilePatch.fullName.required": "Full name is required",
	"ProfilePatch.fullName.min":      "Name must be at least 2 characters",
	"ProfilePatch.fullName.max":      "Name must be at most 100 characters",
	"ProfileUpdate.name.required":    "Full name is required",
	"ProfileUpdate.name.min":         "Name must be at least 2 characters",
	"ProfileUpdate.name.max":         "Name must be at most 100 characters",
	"ProfileUpdate.phone.phone":      "Phone format is invalid (e.g., +380501234567)",

	"PasswordChange.currentPassword.required": "Current password is required",
	"PasswordChange.newPassword.required":     "New password is required",
	"PasswordChange.newPassword.min":          "New password must be at least 6 characters",
	"PasswordChange.newPassword.nefield":      "New password must be different from current password",
	"PasswordChange.confirmPassword.required": "Please confirm your new password",
	"PasswordChange.confirmPassword.eqfield":  "Passwords do not match",

	"Article.name.required":              "Product name is required",
	"Article.name.max":                   "Product name must be 50 characters or less",
	"Article.description.required":       "Product description is required",
	"Article.description.max":            "Description must be 255 characters or less",
	"Article.price.gt":                   "Price must be a positive number",
	"Article.price.lte":                  "Price must be less than 999,999.99",
	"Article.currency.required":          "Currency is required",
	"Article.currency.currency":          "Invalid currency selected",
	"Article.availableQuantity.min":      "Quantity must be 0 or greater",
	"Article.availableQuantity.max":      "Quantity must be less than 999,999",
	"Article.imageUrl.max":               "Image URL must be 255 characters or less",
	"Article.imageUrl.image_url":         "Image URL must be a valid HTTP(S) URL or data URL",
	"Flashcard.englishWord.required":     "English word is required",
	"Flashcard.translation.required":     "Translation is required",
	"Flashcard.category.required":        "Category is required",
	"Flashcard.category.category":        "Invalid category selected",
	"Flashcard.difficulty.difficulty":    "Invalid difficulty selected",
	"Checkout.deliveryName.required":     "Name is required",
	"Checkout.deliveryStreet.required":   "Street address is required",
	"Checkout.deliveryCity.required":     "City is required",
	"Checkout.deliveryState.required":    "State is required",
	"Checkout.deliveryState.len":         "State must be 2 characters (e.g., CA, NY)",
	"Checkout.deliveryState.alpha":       "State must be 2 characters (e.g., CA, NY)",
	"Checkout.deliveryZip.required":      "ZIP code is required",
	"Checkout.deliveryZip.zip":           "Invalid ZIP code format (e.g., 12345 or 12345-6789)",
	"Checkout.ccNumber.required":         "Credit card number is required",
	"Checkout.ccNumber.len":              "Credit card number must be 16 digits",
	"Checkout.ccNumber.number":           "Credit card number must be 16 digits",
	"Checkout.ccExpiration.required":     "Expiration date is required",
	"Checkout.ccExpiration.mmyy":         "Invalid expiration format (MM/YY)",
	"Checkout.ccExpiration.mmyy_future":  "Card has expired",
	"Checkout.ccCvv.required":            "CVV is required",
	"Checkout.ccCvv.len":                 "CVV must be 3 digits",
	"Checkout.ccCvv.number":              "CVV must be 3 digits",
}

func message(e validator.FieldError) string {
	if m, ok := formMessages[e.Namespace()+"."+e.Tag()]; ok {
		return m
	}
	return genericMessage(e)
}

func genericMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "email_loose":
		return "Invalid email format"
	case "min":
		if e.Kind() == reflect.String {
			return "Must be at least " + e.Param() + " characters"
		}
		return "Must be at least " + e.Param()
	case "max":
		if e.Kind() == reflect.String {
			return "Must be at most " + e.Param() + " characters"
		}
		return "Must be at most " + e.Param()
	case "len":
		return "Must be exactly " + e.Param() + " characters"
	case "gt":
		return "Must be greater than " + e.Param()
	case "lte":
		return "Must be less than or equal to " + e.Param()
	case "number":
		return "Must contain only digits"
	case "alpha":
		return "Must contain only letters"
	case "eqfield":
		return "Must match " + lowerFirst(e.Param())
	case "nefield":
		return "Must differ from " + lowerFirst(e.Param())
	case "oneof", "currency", "category", "difficulty":
		return "Invalid value selected"
	default:
		return "Invalid value"
	}
}
