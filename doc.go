/*
Package datalink keeps git working copies and a metadata catalog in sync.

Each commit of a working copy is registered in the catalog as a linked data set. The data set
knows every content copy of the commit: the host, path and commit hash where the content lives.
Working copies are cloned, moved or downloaded from the catalog, without any central storage.

The datalink command lives in cmd/datalink. The synchronization protocol is in pkg/core.
*/
package datalink
