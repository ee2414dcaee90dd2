package utils

import "math/rand"

const alphabet = "abcdefghijklmnopqrstuvwxyz"

// UniqueStrings returns the distinct values of the input, preserving first
// occurrence order.
func UniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	res := []string{}
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		res = append(res, v)
	}
	return res
}

// RandomAlphabetString generates a random lowercase alphabet string of the
// given length.
func RandomAlphabetString(length int) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = alphabet[rand.Intn(len(alphabet))]
	}
	return string(b)
}
