package cmd

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type flagsT struct {
	root struct {
		logLevel string
	}
	init struct {
		description  string
		objectID     string
		collectionID string
		noAnnex      bool
	}
	commit struct {
		message       string
		autoAdd       bool
		strictParents bool
		properties    keyValues
	}
	copy struct {
		sshUser            string
		index              contentCopyIndex
		skipIntegrityCheck bool
		destination        string
		files              []string
	}
	ref struct {
		dataSetID string
	}
	settings struct {
		global bool
	}
}

var datalinkFlags = flagsT{}

var _ pflag.Value = &contentCopyIndex{}

// contentCopyIndex is an optional index: unset selects the only content copy
type contentCopyIndex struct {
	index int
	set   bool
}

func (c *contentCopyIndex) String() string {
	if !c.set {
		return ""
	}
	return strconv.Itoa(c.index)
}

func (c *contentCopyIndex) Set(s string) error {
	i, err := strconv.Atoi(s)
	if err != nil || i < 0 {
		return fmt.Errorf("content copy index must be a positive integer, got %q", s)
	}
	c.index, c.set = i, true
	return nil
}

func (c *contentCopyIndex) Type() string {
	return "index"
}

// Value of the index, negative when unset
func (c *contentCopyIndex) Value() int {
	if !c.set {
		return -1
	}
	return c.index
}

var _ pflag.Value = keyValues{}

// keyValues collects repeated key=value flags
type keyValues map[string]string

func (kv keyValues) String() string {
	pairs := make([]string, 0, len(kv))
	for k, v := range kv {
		pairs = append(pairs, k+"="+v)
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ",")
}

func (kv keyValues) Set(s string) error {
	k, v, err := parseKeyValue(s)
	if err != nil {
		return err
	}
	kv[k] = v
	return nil
}

func (kv keyValues) Type() string {
	return "key=value"
}

func parseKeyValue(s string) (string, string, error) {
	parts := strings.SplitN(s, "=", 2)
	if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" {
		return "", "", fmt.Errorf("expected key=value, got %q", s)
	}
	return strings.TrimSpace(parts[0]), parts[1], nil
}

func addLogLevel(cmd *cobra.Command) string {
	loglevel := "loglevel"
	cmd.PersistentFlags().StringVar(&datalinkFlags.root.logLevel, loglevel, "warn", "The logging level. Levels by increasing order of verbosity: none, error, warn, info, debug")
	return loglevel
}

func addDescriptionFlag(cmd *cobra.Command) string {
	description := "description"
	cmd.Flags().StringVar(&datalinkFlags.init.description, description, "", "A description of this repository, for git-annex")
	return description
}

func addObjectFlag(cmd *cobra.Command) string {
	object := "object"
	cmd.Flags().StringVar(&datalinkFlags.init.objectID, object, "", "The catalog object data sets of this working copy are attached to")
	return object
}

func addCollectionFlag(cmd *cobra.Command) string {
	collection := "collection"
	cmd.Flags().StringVar(&datalinkFlags.init.collectionID, collection, "", "The catalog collection data sets of this working copy are attached to")
	return collection
}

func addNoAnnexFlag(cmd *cobra.Command) string {
	noAnnex := "no-annex"
	cmd.Flags().BoolVar(&datalinkFlags.init.noAnnex, noAnnex, false, "Do not use git-annex for large files")
	return noAnnex
}

func addMessageFlag(cmd *cobra.Command) string {
	message := "message"
	cmd.Flags().StringVarP(&datalinkFlags.commit.message, message, "m", "", "The commit message")
	return message
}

func addAutoAddFlag(cmd *cobra.Command) string {
	autoAdd := "auto-add"
	cmd.Flags().BoolVar(&datalinkFlags.commit.autoAdd, autoAdd, true, "Add untracked files before committing")
	return autoAdd
}

func addStrictParentsFlag(cmd *cobra.Command) string {
	strict := "strict-parents"
	cmd.Flags().BoolVar(&datalinkFlags.commit.strictParents, strict, false, "Fail when a parent data set is missing from the catalog, instead of dropping it")
	return strict
}

func addPropertyFlag(cmd *cobra.Command) string {
	property := "property"
	if datalinkFlags.commit.properties == nil {
		datalinkFlags.commit.properties = make(keyValues)
	}
	cmd.Flags().VarP(datalinkFlags.commit.properties, property, "p", "A data set property for this working copy, as NAME=value. May be repeated")
	return property
}

func addSSHUserFlag(cmd *cobra.Command) string {
	sshUser := "ssh-user"
	cmd.Flags().StringVarP(&datalinkFlags.copy.sshUser, sshUser, "u", "", "The user to log in as on the host of the content copy")
	return sshUser
}

func addContentCopyIndexFlag(cmd *cobra.Command) string {
	index := "content-copy-index"
	cmd.Flags().VarP(&datalinkFlags.copy.index, index, "c", "The content copy to use, required when the data set has several")
	return index
}

func addSkipIntegrityCheckFlag(cmd *cobra.Command) string {
	skip := "skip-integrity-check"
	cmd.Flags().BoolVar(&datalinkFlags.copy.skipIntegrityCheck, skip, false, "Skip the checksum verification of the transferred files")
	return skip
}

func addDestinationFlag(cmd *cobra.Command) string {
	destination := "destination"
	cmd.Flags().StringVarP(&datalinkFlags.copy.destination, destination, "d", "", "The destination folder, the current folder by default")
	return destination
}

func addFilesFlag(cmd *cobra.Command) string {
	files := "file"
	cmd.Flags().StringSliceVarP(&datalinkFlags.copy.files, files, "f", nil, "A file or folder to download. May be repeated, all files by default")
	return files
}

func addDataSetFlag(cmd *cobra.Command) string {
	dataSet := "data-set"
	cmd.Flags().StringVar(&datalinkFlags.ref.dataSetID, dataSet, "", "The data set holding the content copy, when the path is no working copy anymore")
	return dataSet
}

func addGlobalFlag(cmd *cobra.Command) string {
	global := "global"
	cmd.PersistentFlags().BoolVarP(&datalinkFlags.settings.global, global, "g", false, "Use the user settings instead of the working copy settings")
	return global
}
