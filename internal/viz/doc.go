// Package viz renders solver traces for the terminal.
//
//   - [SampleField] and [RenderField]: a shaded map of ‖F‖ over two
//     variables with the iteration path drawn on top
//   - [RenderPath3D]: the path through three variables, rotated and
//     projected
//   - [RenderBasins]: which root each start of a sweep grid reached
//   - [FieldToSVG] and [CanvasToSVG]: the same drawings as SVG documents
//   - [Canvas]: Braille-based pixel canvas used by the path renderers
//   - [SparklineChart] and the shared lipgloss styles for CLI output
//
// Colours degrade to plain glyphs when the output is not a terminal.
package viz
