// Package page defines the page addressing scheme and the Page data model.
//
// An Address identifies a page as (root, type, id, version) with the
// canonical string form "root/type:id@version". Pages are plain structs
// embedding Base and are serialized as JSON, with Address-valued fields
// rendered as their canonical strings.
package page
