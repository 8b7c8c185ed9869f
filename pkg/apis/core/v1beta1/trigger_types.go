/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package v1beta1

// Trigger carries the metadata of the event which started a workflow
// invocation. It is supplied externally and read-only for the core.
type Trigger struct {
	Event         EventKind `json:"event,omitempty"`
	Branch        string    `json:"branch,omitempty"`
	CommitMessage string    `json:"commitMessage,omitempty"`
	ChangedPaths  []string  `json:"changedPaths,omitempty"`
}
