// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

// MethodSEND is the only request method streams exchange.
const MethodSEND = "SEND"

// Response status codes used by this package.
const (
	StatusOK             = 200
	StatusNoSuchSession  = 481
	StatusBadRequest     = 400
	StatusRequestTimeout = 408
)

// Report policy values for the Failure-Report and Success-Report
// headers.
const (
	ReportYes     = "yes"
	ReportNo      = "no"
	ReportPartial = "partial"
)

// ByteRange locates a chunk's payload within its message. Start is
// 1-based; Total is -1 when unknown.
type ByteRange struct {
	Start int64 `cbor:"start"`
	End   int64 `cbor:"end"`
	Total int64 `cbor:"total"`
}

// Chunk is a request or a response. Requests carry Method; responses
// carry Status and leave Method empty.
type Chunk struct {
	Method        string    `cbor:"method,omitempty"`
	Status        int       `cbor:"status,omitempty"`
	Comment       string    `cbor:"comment,omitempty"`
	TransactionID string    `cbor:"transaction_id"`
	MessageID     string    `cbor:"message_id,omitempty"`
	ToPath        Path      `cbor:"to_path"`
	FromPath      Path      `cbor:"from_path"`
	ContentType   string    `cbor:"content_type,omitempty"`
	FailureReport string    `cbor:"failure_report,omitempty"`
	SuccessReport string    `cbor:"success_report,omitempty"`
	ByteRange     ByteRange `cbor:"byte_range"`
	Data          []byte    `cbor:"data,omitempty"`
}

// IsResponse reports whether the chunk is a response.
func (c *Chunk) IsResponse() bool {
	return c.Method == "" && c.Status != 0
}

// MakeResponse builds the response to request with the given status.
// It returns nil when no response may be sent: request is itself a
// response, its Failure-Report is "no", or its Failure-Report is
// "partial" and status reports success. An absent Failure-Report
// means "yes".
func MakeResponse(request *Chunk, status int, comment string) *Chunk {
	if request == nil || request.IsResponse() {
		return nil
	}
	switch request.FailureReport {
	case ReportNo:
		return nil
	case ReportPartial:
		if status == StatusOK {
			return nil
		}
	}
	return &Chunk{
		Status:        status,
		Comment:       comment,
		TransactionID: request.TransactionID,
		ToPath:        request.FromPath,
		FromPath:      request.ToPath,
	}
}
