// Package cot provides the Cursor-on-Target (CoT) event model and its
// XML wire codec.
//
// A CoT event is a small situational-awareness message carrying an
// identity (uid), a type code, timestamps, a geographic point, and an
// extensible detail block:
//
//	<event version="2.0" uid="TRACK1" type="a-f-G-E-V-C" how="m-g"
//	       time="..." start="..." stale="...">
//	  <point lat="34.05" lon="-118.25" hae="100" ce="9999999" le="9999999"/>
//	  <detail>
//	    <contact callsign="RAVEN"/>
//	    <precisionlocation geopointsrc="GPS" altsrc="GPS"/>
//	  </detail>
//	</event>
//
// # Type codes
//
// Atom type codes follow the hierarchy
//
//	a-<affiliation>-<dimension>[-<function>[-<subcategory>...]]
//
// where affiliation is a single lowercase letter (f=friendly, h=hostile,
// n=neutral, u=unknown, ...) and dimension is a single letter (G=ground,
// A=air, S=surface, ...). Example: "a-f-G-E-V-C" is friendly ground
// equipment, vehicle, civilian.
//
// # Validation
//
// Events are validated before encoding and after decoding: non-empty
// uid, well-formed type code, latitude in [-90,90], longitude in
// [-180,180], and time <= stale. A Codec constructed with AllowInvalid
// skips validation on both paths; this exists for fuzzing and for
// interoperating with non-conformant peers and is logged loudly as
// insecure when enabled.
package cot
