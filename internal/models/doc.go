// Package models defines the core domain models for homestock.
//
// # Models
//
//   - Item: one tracked inventory entry with a bounded stock count
//   - Family: the sharing and partition unit; every item belongs to exactly one
//   - User: a household member bound to one family at a time
//
// # Design Principles
//
//  1. Values, not pointers: mutations return a new Item so callers can treat
//     the returned value as the source of truth once a write is confirmed.
//  2. ID strings for relationships: a User references its Family by familyID,
//     and a Family lists its users only as a back-reference.
//  3. Storage field names follow the household app's document layout
//     (amountInStock, familyname, ...), see the json tags.
package models
