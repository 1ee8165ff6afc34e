// Package common contains shared constants and sentinel errors used across
// plantapi components.
package common

import "time"

// AuthorizationHeaderName carries the bearer credential on inbound HTTP requests.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix precedes the token inside the Authorization header.
const BearerPrefix = "Bearer "

// ResetTokenValidity is the window during which an issued password reset
// token can be redeemed.
const ResetTokenValidity = 10 * time.Minute

// MinPasswordLength is the shortest accepted plaintext password.
const MinPasswordLength = 6
