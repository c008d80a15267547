// Package mocks provides mock implementations for testing the corrigo session core.
//
// Hand-written doubles for the wide IdentityProvider port live in
// internal/mocks/auth; the small Router and Notifier ports use
// go.uber.org/mock (gomock) generated mocks instead.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
package mocks

// Generate mocks for the Router and Notifier ports used by the access guard
// and session service tests.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=portsmock -destination=portsmock/ports_mock.go github.com/corrigohq/corrigo/internal/ports Router,Notifier
