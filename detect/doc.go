// Package detect segments a rendered page into drawing regions.
//
// The page is thresholded so that anything darker than near-white is
// ink; the outer borders of ink shapes are traced and each large enough
// shape becomes a padded, clamped bounding box.
package detect
