// Package extract turns loosely structured wiki HTML into typed quest
// records. Every extractor is a pure function over a parsed document;
// a missing section or label yields an absent field, never an error.
//
// The boundary and stop-word rules encoded here are the actual contract
// with the wiki's markup conventions; the goquery traversal is incidental.
package extract
