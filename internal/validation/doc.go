// Shopfeed - Personalized Product Feed Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopfeed

// Package validation wraps go-playground/validator for API request structs.
//
// A single validator instance is shared by all handlers so struct metadata
// is parsed once. Field names in errors come from json tags. Two custom
// tags are registered:
//
//   - action: any name models.ParseAction accepts, aliases included
//   - userid: a non-empty id without whitespace
//
// Example:
//
//	type feedbackRequest struct {
//	    UserID string `json:"user_id" validate:"required,userid"`
//	    Signal string `json:"signal" validate:"required,max=64"`
//	}
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", verr.Error(), verr.Details())
//	    return
//	}
package validation
