// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package cliUtils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Fantom-foundation/Shardkit/go/ct"
)

type issue struct {
	vector string
	err    error
}

func (i *issue) Error() error {
	return i.err
}

func (i *issue) Vector() string {
	return i.vector
}

type IssuesCollector struct {
	issues []issue
	mu     sync.Mutex
}

func (c *IssuesCollector) AddIssue(vector string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.issues = append(c.issues, issue{vector, err})
}

func (c *IssuesCollector) NumIssues() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.issues)
}

func (c *IssuesCollector) GetIssues() []issue {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.issues
}

// ExportIssues prints all collected issues. The state differences of hash
// mismatches are additionally written to files of a temporary directory.
func (c *IssuesCollector) ExportIssues() error {
	issues := c.GetIssues()
	if len(issues) == 0 {
		return nil
	}
	dir, err := os.MkdirTemp("", "ct_issues_*")
	if err != nil {
		return fmt.Errorf("failed to create output directory for %d issues", len(issues))
	}
	for i, issue := range issues {
		fmt.Printf("----------------------------\n")
		fmt.Printf("%s: %s\n", issue.vector, issue.err)

		var mismatch *ct.MismatchError
		if !errors.As(issue.err, &mismatch) {
			continue
		}
		path := filepath.Join(dir, fmt.Sprintf("issue_%06d.txt", i))
		content := strings.Join(mismatch.Diff.Entries(), "\n") + "\n"
		if err := os.WriteFile(path, []byte(content), 0644); err == nil {
			fmt.Printf("State difference dumped to %s\n", path)
		} else {
			fmt.Printf("failed to dump state difference: %v\n", err)
		}
	}
	return nil
}
