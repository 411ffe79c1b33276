// Package errors provides structured error handling for domain failures.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// CodeInvalidPayload indicates a request body that could not be decoded.
	CodeInvalidPayload Code = "INVALID_PAYLOAD"

	// Account errors
	CodeAccountEmptyUsername   Code = "ACCOUNT_EMPTY_USERNAME"
	CodeAccountInvalidUsername Code = "ACCOUNT_INVALID_USERNAME"
	CodeAccountInvalidEmail    Code = "ACCOUNT_INVALID_EMAIL"
	CodeAccountWeakPassword    Code = "ACCOUNT_WEAK_PASSWORD"
	CodeAccountExists          Code = "ACCOUNT_EXISTS"
	CodeAccountBadCredentials  Code = "ACCOUNT_BAD_CREDENTIALS"

	// Session errors
	CodeSessionInvalid Code = "SESSION_INVALID"
	CodeSessionExpired Code = "SESSION_EXPIRED"

	// Recipe errors
	CodeRecipeEmptyTitle        Code = "RECIPE_EMPTY_TITLE"
	CodeRecipeInvalidServings   Code = "RECIPE_INVALID_SERVINGS"
	CodeRecipeInvalidVisibility Code = "RECIPE_INVALID_VISIBILITY"
	CodeRecipeEmptyOwner        Code = "RECIPE_EMPTY_OWNER"
	CodeRecipeNoIngredients     Code = "RECIPE_NO_INGREDIENTS"
	CodeRecipeMoveOutOfRange    Code = "RECIPE_MOVE_OUT_OF_RANGE"
	CodeRecipeForbidden         Code = "RECIPE_FORBIDDEN"

	// Scaling errors
	CodeScaleInvalidServings Code = "SCALE_INVALID_SERVINGS"

	// Rating errors
	CodeRatingOutOfRange Code = "RATING_OUT_OF_RANGE"
	CodeRatingOwnRecipe  Code = "RATING_OWN_RECIPE"

	// Shopping list errors
	CodeShoppingEmptyLabel Code = "SHOPPING_EMPTY_LABEL"

	// Import/export errors
	CodeExportUnknownFormat  Code = "EXPORT_UNKNOWN_FORMAT"
	CodeImportInvalidPayload Code = "IMPORT_INVALID_PAYLOAD"

	// AI flow errors
	CodeAIEmptyImage     Code = "AI_EMPTY_IMAGE"
	CodeAIEmptyPrompt    Code = "AI_EMPTY_PROMPT"
	CodeAIBadDraft       Code = "AI_BAD_DRAFT"
	CodeAIProviderFailed Code = "AI_PROVIDER_FAILED"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
)

// HTTPStatus maps domain codes to HTTP status codes.
func (c Code) HTTPStatus() int {
	switch c {
	// Bad request - validation failures, bad input
	case CodeInvalidPayload,
		CodeAccountEmptyUsername,
		CodeAccountInvalidUsername,
		CodeAccountInvalidEmail,
		CodeAccountWeakPassword,
		CodeRecipeEmptyTitle,
		CodeRecipeInvalidServings,
		CodeRecipeInvalidVisibility,
		CodeRecipeEmptyOwner,
		CodeRecipeNoIngredients,
		CodeRecipeMoveOutOfRange,
		CodeScaleInvalidServings,
		CodeRatingOutOfRange,
		CodeShoppingEmptyLabel,
		CodeExportUnknownFormat,
		CodeImportInvalidPayload,
		CodeAIEmptyImage,
		CodeAIEmptyPrompt:
		return http.StatusBadRequest

	// Unauthorized - missing or failed authentication
	case CodeAccountBadCredentials,
		CodeSessionInvalid,
		CodeSessionExpired:
		return http.StatusUnauthorized

	// Forbidden - authenticated but not allowed
	case CodeRecipeForbidden,
		CodeRatingOwnRecipe:
		return http.StatusForbidden

	// Conflict - uniqueness violations
	case CodeAccountExists:
		return http.StatusConflict

	// Not found
	case CodeNotFound:
		return http.StatusNotFound

	// Bad gateway - upstream AI provider failures
	case CodeAIProviderFailed, CodeAIBadDraft:
		return http.StatusBadGateway

	default:
		return http.StatusInternalServerError
	}
}
