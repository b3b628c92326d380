// Package rustgen renders a typed HIR module as a single Rust source file.
//
// Generation runs in two phases. Phase one walks every function and class
// body, producing the body text and recording which std imports, union
// enums and derive bounds the bodies turned out to need. Phase two
// assembles the file in a fixed order: external crate uses, std uses,
// type aliases, constants, union enums, struct definitions, impl blocks,
// free functions, and an optional #[cfg(test)] module distilled from
// docstring examples. The fixed order makes output byte-identical across
// runs for the same input.
//
// Ownership decisions are not made here: the borrow solver's signatures
// decide &T, &mut T or owned per parameter, and rustgen only renders them
// and inserts the matching &/&mut/.clone() at call sites.
package rustgen
