// Package lib defines a Manifest type.
//
// It also contains subpackages for talking to in-cluster resources.
// resourceread decodes objects returned by the API server, and
// resourcedelete holds the protection and delete bookkeeping consumed
// by the kubernetes platform client.
package lib
