/*
Package schema reads the type declarations of checked callables from YAML.

It is one annotation source for the validator: it turns a file into an
ordered list of parameter names and type expectations. Go functions can
instead derive their signature from their own parameter types, see
runtime.Infer.

# Declaration Files

	function: scale
	description: Multiply every value by a factor.
	params:
	  - name: values
	    type: "[float]"
	  - name: factor
	    type: float
	variadic: { name: extra, type: int }
	keywords: { name: labels, type: str }

Several functions may share a file, separated by "---".

# Type Syntax

  - int, float, str, bool, bytes, duration, timestamp, uuid: builtin leaf types
  - [T]:       sequence of T
  - {K: V}:    mapping of K to V
  - (T1, T2):  tuple, exactly one element per listed type
  - [T1, T2]:  same as (T1, T2)

A parameter without a type is passed through unchecked.

# Parsing

	decls, err := schema.ParseDir("signatures/")
	catalog, err := schema.NewCatalog(expect.NewRegistry(), decls)

Parse validates structure (names, duplicates). NewCatalog resolves the types;
an unknown type name fails there, before any call is checked.
*/
package schema
