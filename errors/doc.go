// Package errors provides the structured error taxonomy shared by the
// cmdstream packages.
//
// Every failure surfaced by the splice engine is an *AppError carrying one of
// four codes: CONFIG_ERROR for bad construction arguments, QUEUE_STATE for
// submissions after the queue was closed, RESOLVE_FAILED for items that could
// not be opened and STREAM_FAILED for sources that broke while draining.
package errors
