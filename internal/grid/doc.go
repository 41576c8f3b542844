// Package grid builds the nested sky-plane grids the model is rasterized
// on, and the beam kernel sampled at the base pitch.
//
// Layer 0 has the observation's pixel pitch and covers the full field of
// view plus beam padding. Layer l has pitch base/2^l and the same pixel
// count, so it covers the central 1/2^l of the footprint. After
// rasterization each finer layer is block-averaged 2x2 into the centre of
// the next coarser one, then layer 0 is cropped to the needed region.
package grid
