// Package testing provides test utilities for the wraprun library.
//
// It follows Go's convention of providing testing utilities in a
// dedicated package (similar to net/http/httptest). The in-process
// communicator fabric itself lives in the commtest package; this package
// carries the cross-cutting helpers.
//
// Example usage:
//
//	import (
//	    "testing"
//	    wraptest "github.com/olcf/wraprun/testing"
//	)
//
//	func TestMyComponent(t *testing.T) {
//	    logger := wraptest.NewTestLogger(t)
//	    // Pass logger to the manager under test.
//	}
package testing
