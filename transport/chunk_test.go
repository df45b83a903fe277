// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import "testing"

func TestMakeResponsePolicy(t *testing.T) {
	tests := []struct {
		name          string
		failureReport string
		status        int
		wantResponse  bool
	}{
		{"absent means yes", "", StatusOK, true},
		{"yes", ReportYes, StatusOK, true},
		{"no", ReportNo, StatusOK, false},
		{"no suppresses errors too", ReportNo, StatusNoSuchSession, false},
		{"partial suppresses success", ReportPartial, StatusOK, false},
		{"partial allows errors", ReportPartial, StatusNoSuchSession, true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			request := &Chunk{
				Method:        MethodSEND,
				TransactionID: "tx-1",
				FailureReport: test.failureReport,
			}
			response := MakeResponse(request, test.status, "comment")
			if (response != nil) != test.wantResponse {
				t.Fatalf("MakeResponse returned %v, want response = %v", response, test.wantResponse)
			}
			if response == nil {
				return
			}
			if response.Status != test.status {
				t.Errorf("Status = %d, want %d", response.Status, test.status)
			}
			if response.TransactionID != "tx-1" {
				t.Errorf("TransactionID = %q, want tx-1", response.TransactionID)
			}
			if !response.IsResponse() {
				t.Error("IsResponse() = false for a response")
			}
		})
	}
}

func TestMakeResponseSwapsPaths(t *testing.T) {
	from := Path{{Host: "a", Port: 1, SessionID: "from", Transport: ParamTCP}}
	to := Path{{Host: "b", Port: 2, SessionID: "to", Transport: ParamTCP}}
	response := MakeResponse(&Chunk{Method: MethodSEND, ToPath: to, FromPath: from}, StatusOK, "OK")
	if response == nil {
		t.Fatal("MakeResponse returned nil")
	}
	if response.ToPath.String() != from.String() {
		t.Errorf("ToPath = %s, want %s", response.ToPath, from)
	}
	if response.FromPath.String() != to.String() {
		t.Errorf("FromPath = %s, want %s", response.FromPath, to)
	}
}

func TestMakeResponseNeverAnswersResponses(t *testing.T) {
	if response := MakeResponse(&Chunk{Status: StatusOK}, StatusOK, "OK"); response != nil {
		t.Errorf("MakeResponse(response) = %+v, want nil", response)
	}
	if response := MakeResponse(nil, StatusOK, "OK"); response != nil {
		t.Errorf("MakeResponse(nil) = %+v, want nil", response)
	}
}
