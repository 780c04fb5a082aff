// Package auth hashes and verifies the operator password.
//
// Hashes are Argon2id in PHC string form,
// $argon2id$v=19$m=<KiB>,t=<iterations>,p=<threads>$<salt>$<key>, with
// unpadded standard base64 for salt and key. The cost parameters travel
// inside the string, so a hash stays verifiable after the defaults change.
package auth
