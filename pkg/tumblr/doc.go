// Package tumblr is a small client for the Tumblr v2 API.
//
// It covers the two listings the scanner needs: the blogs the authenticated
// user follows and a blog's posts, optionally limited to posts after a
// timestamp. Posts are decoded at this boundary into TextPost, PhotoPost or
// UnsupportedPost so callers switch on the variant instead of a type string.
//
// Listings page with limit/offset; a page shorter than the page size is the last one.
package tumblr
