// Package processor provides the HTML extractor and rewriter.
package processor

import "github.com/ZaguanLabs/pagetran"

// Processor is an alias to the main package interface.
type Processor = pagetran.Processor

// Span is an alias to the main package type.
type Span = pagetran.Span
